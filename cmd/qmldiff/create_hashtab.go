package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qmldiff/qmldiff/hashtab"
	"github.com/qmldiff/qmldiff/qml"
)

var createHashtabCmd = &cobra.Command{
	Use:   "create-hashtab <root> [out]",
	Short: "walk root and hash every file name and path plus the names declared in each .qml file",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		out := "hashtab.txt"
		if len(args) == 2 {
			out = args[1]
		}

		tab := hashtab.New()
		if err := buildHashtabFromTree(tab, root, "", logger); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if err := tab.Save(out, ""); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Printf("%s: %d entries\n", out, tab.Len())
	},
}

// buildHashtabFromTree walks directory, hashing every entry's own name and
// its root-relative path (original_source/cli_util.rs's
// build_recursive_hashmap), plus the names declared in each .qml file's AST:
// import names, object type names, the names of named objects, properties,
// assignments, functions, signals and enums, and function/signal argument
// and enum member names. Identifiers and string literals inside value token
// streams and function bodies are not hashed.
func buildHashtabFromTree(tab *hashtab.Table, root, relative string, logger *zap.Logger) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		rel := relative + "/" + name
		tab.Insert(name)
		tab.Insert(strings.TrimPrefix(rel, "/"))

		path := filepath.Join(root, name)
		if entry.IsDir() {
			if err := buildHashtabFromTree(tab, path, rel, logger); err != nil {
				return err
			}
			continue
		}
		if !strings.HasSuffix(name, ".qml") {
			continue
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		f, err := qml.Parse(path, string(text))
		if err != nil {
			logger.Warn("skipping unparseable qml file", zap.String("path", path), zap.Error(err))
			continue
		}
		hashFileIdentifiers(tab, f)
	}
	return nil
}

func hashFileIdentifiers(tab *hashtab.Table, f *qml.File) {
	for _, imp := range f.Imports {
		tab.Insert(imp.Name)
	}
	for _, o := range f.Objects {
		hashObjectIdentifiers(tab, o)
	}
}

func hashObjectIdentifiers(tab *hashtab.Table, o *qml.Object) {
	tab.Insert(o.TypeName.Literal)
	for _, c := range o.Children {
		hashChildIdentifiers(tab, c)
	}
}

func hashChildIdentifiers(tab *hashtab.Table, c qml.Child) {
	switch v := c.(type) {
	case *qml.Object:
		hashObjectIdentifiers(tab, v)
	case *qml.NamedObjectDecl:
		tab.Insert(v.Name.Literal)
		hashObjectIdentifiers(tab, v.Object)
	case *qml.PropertyDecl:
		tab.Insert(v.Name)
		if v.ValueObj != nil {
			hashObjectIdentifiers(tab, v.ValueObj)
		}
		if v.ValueNamed != nil {
			tab.Insert(v.ValueNamed.Name.Literal)
			hashObjectIdentifiers(tab, v.ValueNamed.Object)
		}
	case *qml.Assignment:
		tab.Insert(v.Target.Literal)
		if v.ValueObj != nil {
			hashObjectIdentifiers(tab, v.ValueObj)
		}
		if v.ValueNamed != nil {
			tab.Insert(v.ValueNamed.Name.Literal)
			hashObjectIdentifiers(tab, v.ValueNamed.Object)
		}
	case *qml.Function:
		tab.Insert(v.Name)
		for _, a := range v.Args {
			tab.Insert(a.Name)
		}
	case *qml.Signal:
		tab.Insert(v.Name)
		for _, a := range v.Args {
			tab.Insert(a.Name)
		}
	case *qml.Enum:
		tab.Insert(v.Name)
		for _, m := range v.Members {
			tab.Insert(m.Name)
		}
	}
}
