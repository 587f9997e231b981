package main

import (
	"github.com/spf13/cobra"

	"cix/internal/envelope"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index totals",
	Long: `Show symbol totals by domain, type and layer, edge counts by reference
type, the number of lineage records and the last index run.`,
	Args: cobra.NoArgs,
	Run:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.Stats(ctx)
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}
