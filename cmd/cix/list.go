package main

import (
	"github.com/spf13/cobra"

	"cix/internal/envelope"
	"cix/internal/query"
)

var (
	listType         string
	listLayer        string
	listDomain       string
	listCategory     string
	listFile         string
	listIncludeFiles bool
	listLimit        int
	listOffset       int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List symbols",
	Long: `List indexed symbols ordered by file and line.

Examples:
  cix list --layer Backend --type Function
  cix list --file src/api/users.py
  cix list --domain doc --limit 50 --offset 100`,
	Args: cobra.NoArgs,
	Run:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by symbol type")
	listCmd.Flags().StringVar(&listLayer, "layer", "", "Filter by layer")
	listCmd.Flags().StringVar(&listDomain, "domain", "", "Filter by domain (code, doc)")
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().StringVar(&listFile, "file", "", "Filter by file path")
	listCmd.Flags().BoolVar(&listIncludeFiles, "include-files", false, "Include File symbols")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of results (default from config)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of results to skip")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.List(ctx, query.ListOptions{
		Type:         listType,
		Layer:        listLayer,
		Domain:       listDomain,
		Category:     listCategory,
		File:         listFile,
		IncludeFiles: listIncludeFiles,
		Limit:        listLimit,
		Offset:       listOffset,
	})
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}
