package main

import (
	"github.com/spf13/cobra"

	"cix/internal/envelope"
	"cix/internal/query"
)

var impactCmd = &cobra.Command{
	Use:   "impact <symbol-id | table.column>",
	Short: "Show what a change to a symbol or column affects",
	Long: `Follow mapping edges downstream from a symbol and report every affected
symbol grouped by layer, with the field path to each sink.

A target without "::" is resolved by name against Database symbols first.

Examples:
  cix impact users.email
  cix impact "db/schema.sql::users.email"`,
	Args: cobra.ExactArgs(1),
	Run:  runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.Impact(ctx, query.ImpactOptions{Target: args[0]})
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}
