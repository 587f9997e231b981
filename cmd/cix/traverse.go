package main

import (
	"github.com/spf13/cobra"

	"cix/internal/query"
)

var (
	traverseDepth     int
	traverseDirection string
	traverseRefs      []string
	traverseMaxNodes  int
)

var traverseCmd = &cobra.Command{
	Use:   "traverse <symbol-id>",
	Short: "Walk the symbol graph from a root",
	Long: `Breadth-first traversal from a root symbol. Each node is visited once, so
cycles terminate; meta.truncated reports whether the depth or node cap cut
the walk short.

Examples:
  cix traverse "src/api/users.py::create_user" --depth 2 --direction out
  cix traverse "src/models.py::User" --direction in --ref Extends,Calls`,
	Args: cobra.ExactArgs(1),
	Run:  runTraverse,
}

func init() {
	traverseCmd.Flags().IntVar(&traverseDepth, "depth", 2, "Number of hops from the root")
	traverseCmd.Flags().StringVar(&traverseDirection, "direction", query.DirectionOut, "Edge direction (in, out, both)")
	traverseCmd.Flags().StringSliceVar(&traverseRefs, "ref", nil, "Follow only these reference types")
	traverseCmd.Flags().IntVar(&traverseMaxNodes, "max-nodes", 0, "Node cap (default from config)")
	rootCmd.AddCommand(traverseCmd)
}

func runTraverse(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.Traverse(ctx, query.TraverseOptions{
		Root:      args[0],
		Depth:     traverseDepth,
		Direction: traverseDirection,
		Refs:      traverseRefs,
		MaxNodes:  traverseMaxNodes,
	})
	if err != nil {
		fail(err)
	}
	emit(env.Graph(res))
}
