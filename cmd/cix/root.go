package main

import (
	"cix/internal/version"

	"github.com/spf13/cobra"
)

var (
	// formatFlag selects json or human output for every verb
	formatFlag string
	// legacyFlag answers queries from the legacy JSONL files
	legacyFlag   bool
	repoFlag     string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cix",
	Short: "cix - code and documentation index",
	Long: `cix indexes source code and documentation of a repository into a single
SQLite store under .cix/ and answers structural queries over it: symbol search,
graph traversal, hotspots, data lineage and impact analysis.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "json", "Output format (json, human)")
	rootCmd.PersistentFlags().BoolVar(&legacyFlag, "legacy", false, "Answer queries from the legacy JSONL index")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")
}
