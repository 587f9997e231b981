package main

import (
	"github.com/spf13/cobra"

	"cix/internal/envelope"
	"cix/internal/query"
)

var (
	hotspotsLayer string
	hotspotsType  string
	hotspotsLimit int
)

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Rank symbols by edge degree",
	Long: `Rank symbols by the number of incoming plus outgoing edges.

Examples:
  cix hotspots --limit 10
  cix hotspots --layer Database --type Table`,
	Args: cobra.NoArgs,
	Run:  runHotspots,
}

func init() {
	hotspotsCmd.Flags().StringVar(&hotspotsLayer, "layer", "", "Filter by layer")
	hotspotsCmd.Flags().StringVar(&hotspotsType, "type", "", "Filter by symbol type")
	hotspotsCmd.Flags().IntVar(&hotspotsLimit, "limit", 0, "Maximum number of results (default from config)")
	rootCmd.AddCommand(hotspotsCmd)
}

func runHotspots(cmd *cobra.Command, args []string) {
	ctx := newContext()
	engine, env := mustOpenEngine(ctx)
	defer engine.Close()

	res, err := engine.Hotspots(ctx, query.HotspotOptions{
		Layer: hotspotsLayer,
		Type:  hotspotsType,
		Limit: hotspotsLimit,
	})
	if err != nil {
		fail(err)
	}
	emit(envelope.Result(env, res))
}
