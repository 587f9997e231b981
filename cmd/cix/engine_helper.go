package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cix/internal/config"
	"cix/internal/envelope"
	"cix/internal/query"
	"cix/internal/slogutil"
)

// getRepoRoot returns the repository root directory.
func getRepoRoot() (string, error) {
	if repoFlag != "" {
		return filepath.Abs(repoFlag)
	}
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// loadConfig reads .cix/config.json, falling back to defaults when the file
// is unusable.
func loadConfig(repoRoot string) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		cfg = config.DefaultConfig()
	}
	if legacyFlag {
		cfg.Query.UseLegacy = true
	}
	return cfg
}

func logLevel(cfg *config.Config) slog.Level {
	if logLevelFlag != "" {
		return slogutil.LevelFromString(logLevelFlag)
	}
	return slogutil.LevelFromString(cfg.Logging.Level)
}

// newLogger writes to stderr so stdout carries only the envelope.
func newLogger(cfg *config.Config) *slog.Logger {
	return slogutil.NewFormatLogger(os.Stderr, cfg.Logging.Format, logLevel(cfg))
}

// mustOpenEngine opens the query engine for the repository and the envelope
// builder stamped with its root. Failures are reported as an error envelope.
func mustOpenEngine(ctx context.Context) (*query.Engine, *envelope.Builder) {
	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot)
	engine, err := query.Open(ctx, repoRoot, cfg, newLogger(cfg))
	if err != nil {
		fail(err)
	}
	return engine, envelope.New().Project(repoRoot)
}

// emit prints a response in the selected format.
func emit(resp interface{}) {
	output, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// fail prints the error envelope and exits with status 1.
func fail(err error) {
	resp := envelope.Error(err)
	if OutputFormat(formatFlag) == FormatHuman {
		fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", resp.Error.Code, resp.Error.Message)
		os.Exit(1)
	}
	output, ferr := formatJSON(resp)
	if ferr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
	os.Exit(1)
}
