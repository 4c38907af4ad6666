package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qmldiff/qmldiff/engine"
	"github.com/qmldiff/qmldiff/internal/diag"
)

var (
	flattenDest bool
	clearDest   bool
)

var applyDiffsCmd = &cobra.Command{
	Use:   "apply-diffs <src> <dst> <diff>...",
	Short: "load all diffs, process each file under src with any applicable patches, write to dst",
	Args:  cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		src, dst, diffPaths := args[0], args[1], args[2:]

		ctx := engine.New(engine.WithLogger(logger))
		if hashtabPath != "" {
			if err := ctx.LoadHashtab(hashtabPath); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		}

		for _, d := range diffPaths {
			if _, err := ctx.BuildChangeFiles(d); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		}

		if clearDest {
			if err := os.RemoveAll(dst); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		}
		if err := os.MkdirAll(dst, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		failed := false
		counter := 0
		filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return nil
			}

			contents, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, diag.Format(diag.FromError(path, err), !noColor))
				failed = true
				return nil
			}

			out, modified, err := ctx.ProcessFile(rel, contents)
			if err != nil {
				fmt.Fprintln(os.Stderr, diag.Format(diag.FromError(rel, err), !noColor))
				failed = true
				return nil
			}

			destPath := destinationPath(dst, rel, flattenDest, &counter)
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				fmt.Fprintln(os.Stderr, err)
				failed = true
				return nil
			}
			if err := os.WriteFile(destPath, out, 0o644); err != nil {
				fmt.Fprintln(os.Stderr, err)
				failed = true
				return nil
			}
			if modified {
				logger.Info("patched", zap.String("file", rel), zap.String("out", destPath))
			}
			return nil
		})

		for _, name := range ctx.UnusedSlots() {
			logger.Warn("slot defined but never expanded", zap.String("slot", name))
		}

		if failed {
			os.Exit(2)
		}
	},
}

func init() {
	applyDiffsCmd.Flags().BoolVarP(&flattenDest, "flatten", "f", false, "flatten the destination directory structure")
	applyDiffsCmd.Flags().BoolVarP(&clearDest, "clear", "c", false, "clear the destination directory first")
}

func destinationPath(dst, rel string, flatten bool, counter *int) string {
	if !flatten {
		return filepath.Join(dst, rel)
	}
	name := strconv.Itoa(*counter) + "_" + filepath.Base(rel)
	*counter++
	return filepath.Join(dst, name)
}
