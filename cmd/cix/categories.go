package main

import (
	"github.com/spf13/cobra"

	"cix/internal/envelope"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Count symbols per category",
	Args:  cobra.NoArgs,
	Run:   runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.Categories(ctx)
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}
