package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	hashtabPath string
	noColor     bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qmldiff",
	Short: "qmldiff - structural patch engine for QML source trees",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&hashtabPath, "hashtab", "", "hashtab file to load before running")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored diagnostics")

	rootCmd.AddCommand(createHashtabCmd)
	rootCmd.AddCommand(hashDiffsCmd)
	rootCmd.AddCommand(applyDiffsCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
