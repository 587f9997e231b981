package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cix/internal/envelope"
	"cix/internal/query"
)

var (
	searchType  string
	searchLayer string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for symbols",
	Long: `Search for symbols matching a query string.

Ranking runs in tiers: exact name, name prefix, qualified name, then full
text over symbol bodies. The full-text tier only runs when the earlier tiers
found fewer results than the limit.

Examples:
  cix search create_user
  cix search "refund policy" --limit 5
  cix search User --type Class --layer Backend`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by symbol type")
	searchCmd.Flags().StringVar(&searchLayer, "layer", "", "Filter by layer")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (default from config)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	queryStr := strings.Join(args, " ")
	res, err := engine.Search(ctx, query.SearchOptions{
		Query: queryStr,
		Type:  searchType,
		Layer: searchLayer,
		Limit: searchLimit,
	})
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))

	engine.Logger().Debug("Search query completed",
		"query", queryStr,
		"results", len(res.Data),
		"duration", time.Since(start).Milliseconds(),
	)
}
