package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cix/internal/envelope"
	"cix/internal/migrate"
	"cix/internal/slogutil"
)

var (
	migrateFrom     string
	migrateSample   int
	migrateNoBackup bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Build the unified store from a legacy JSONL index",
	Long: `Load symbols.jsonl and edges.jsonl from a legacy index directory into a
new store, verify counts and checksums, and replace .cix/index.db atomically.
On any failure the existing store is left untouched.

Examples:
  cix migrate --from .cix/legacy
  cix migrate --from /backup/index --sample 1000 --no-backup`,
	Args: cobra.NoArgs,
	Run:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "", "Legacy index directory (default from config)")
	migrateCmd.Flags().IntVar(&migrateSample, "sample", 0, "Verify checksums on N evenly spaced records (0 = config, full pass if unset)")
	migrateCmd.Flags().BoolVar(&migrateNoBackup, "no-backup", false, "Skip the compressed backup of the replaced store")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot)

	console := slogutil.NewFormatHandler(os.Stderr, cfg.Logging.Format, logLevel(cfg))
	logger, closer := slogutil.NewIndexLogger(repoRoot, cfg, console)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	from := migrateFrom
	if from == "" {
		from = cfg.Query.LegacyPath
	}

	report, err := migrate.NewMigrator(repoRoot, cfg, logger).Migrate(ctx, migrate.Options{
		From:     from,
		Sample:   migrateSample,
		NoBackup: migrateNoBackup,
	})
	if err != nil {
		fail(err)
	}
	emit(envelope.New().Project(repoRoot).Data(report, report.Symbols, "index"))
}
