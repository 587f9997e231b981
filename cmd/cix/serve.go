package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cix/internal/api"
	"cix/internal/envelope"
	"cix/internal/query"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the HTTP API server. Every query verb is exposed as GET /v1/<verb>
and answers with the same envelope the CLI prints. /metrics serves
Prometheus metrics for the server itself.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot)
	logger := newLogger(cfg)

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	engine, err := query.Open(context.Background(), repoRoot, cfg, logger)
	if err != nil {
		fail(err)
	}
	defer engine.Close()

	server := api.NewServer(addr, engine, envelope.New().Project(repoRoot), logger)

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "Listening on http://%s\n", addr)
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}
