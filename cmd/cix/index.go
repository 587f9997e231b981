package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cix/internal/envelope"
	"cix/internal/incremental"
	"cix/internal/index"
	"cix/internal/metrics"
	"cix/internal/paths"
	"cix/internal/slogutil"
	"cix/internal/storage"
)

var (
	indexForce bool
	indexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the repository",
	Long: `Bring .cix/index.db up to date with the working tree.

Only files whose content changed since the last run are parsed again; deleted
files lose their symbols and edges, and moved files keep their history. An
interrupted run keeps every file it already committed.

Examples:
  cix index              # incremental run
  cix index --force      # reparse every file
  cix index --watch      # keep indexing as files change`,
	Args: cobra.NoArgs,
	Run:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Reparse every file")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "Re-index after file changes until interrupted")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot)

	console := slogutil.NewFormatHandler(os.Stderr, cfg.Logging.Format, logLevel(cfg))
	logger, closer := slogutil.NewIndexLogger(repoRoot, cfg, console)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, err := incremental.NewRepoExtractor(repoRoot, logger)
	if err != nil {
		fail(err)
	}
	db, err := storage.OpenRepo(repoRoot, logger)
	if err != nil {
		fail(err)
	}
	defer db.Close()

	indexer := incremental.NewIndexer(repoRoot, db, extractor, incremental.ConfigFrom(cfg), logger)
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Textfile
		if path == "" {
			path = paths.MetricsPath(repoRoot)
		}
		indexer.Observe(metrics.NewTextfile(path))
	}

	env := envelope.New().Project(repoRoot)

	if indexWatch {
		debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", repoRoot)
		err := indexer.Watch(ctx, debounce, func(s *index.RunSummary, err error) {
			if err != nil && ctx.Err() == nil {
				logger.Error("Index run failed", "error", err)
				return
			}
			if s != nil && !s.NoChanges() {
				emit(env.Data(s, s.FilesParsed, "index"))
			}
		})
		if err != nil {
			fail(err)
		}
		return
	}

	summary, err := indexer.Run(ctx, incremental.Options{Force: indexForce})
	if err != nil {
		if summary != nil && summary.Interrupted {
			emit(env.Data(summary, summary.FilesParsed, "index"))
			fmt.Fprintln(os.Stderr, "Index run interrupted; committed files are kept")
			os.Exit(1)
		}
		fail(err)
	}
	emit(env.Data(summary, summary.FilesParsed, "index"))
}
