package main

import (
	"github.com/spf13/cobra"

	"cix/internal/envelope"
)

var getCmd = &cobra.Command{
	Use:   "get <symbol-id>",
	Short: "Show one symbol with its edge counts",
	Args:  cobra.ExactArgs(1),
	Run:   runGet,
}

var contentCmd = &cobra.Command{
	Use:   "content <symbol-id>",
	Short: "Print the stored body of a symbol",
	Args:  cobra.ExactArgs(1),
	Run:   runContent,
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(contentCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.Get(ctx, args[0])
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}

func runContent(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.Content(ctx, args[0])
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}
