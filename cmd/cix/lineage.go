package main

import (
	"strings"

	"github.com/spf13/cobra"

	"cix/internal/envelope"
	"cix/internal/errors"
	"cix/internal/query"
)

var (
	lineageComplete string
	lineageLimit    int
	lineageOffset   int
)

var lineageCmd = &cobra.Command{
	Use:   "lineage",
	Short: "Query data lineage records",
}

var lineageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lineage records",
	Args:  cobra.NoArgs,
	Run:   runLineageList,
}

var lineageSearchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Find lineage records by source or sink name",
	Args:  cobra.MinimumNArgs(1),
	Run:   runLineageSearch,
}

func init() {
	for _, c := range []*cobra.Command{lineageListCmd, lineageSearchCmd} {
		c.Flags().StringVar(&lineageComplete, "complete", "", "Keep only complete (true) or incomplete (false) records")
		c.Flags().IntVar(&lineageLimit, "limit", 0, "Maximum number of results (default from config)")
		c.Flags().IntVar(&lineageOffset, "offset", 0, "Number of results to skip")
		lineageCmd.AddCommand(c)
	}
	rootCmd.AddCommand(lineageCmd)
}

func lineageOptions() query.LineageOptions {
	opts := query.LineageOptions{Limit: lineageLimit, Offset: lineageOffset}
	switch strings.ToLower(lineageComplete) {
	case "":
	case "true", "yes", "1":
		v := true
		opts.Complete = &v
	case "false", "no", "0":
		v := false
		opts.Complete = &v
	default:
		fail(errors.NewValidationError("complete", "expected true or false, got "+lineageComplete))
	}
	return opts
}

func runLineageList(cmd *cobra.Command, args []string) {
	opts := lineageOptions()
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.LineageList(ctx, opts)
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}

func runLineageSearch(cmd *cobra.Command, args []string) {
	opts := lineageOptions()
	opts.Query = strings.Join(args, " ")
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.LineageSearch(ctx, opts)
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}
