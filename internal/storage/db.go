// Package storage is the unified SQLite store: symbols, partitioned edge
// tables, lineage records, index state and the FTS5 search index.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"cix/internal/errors"
	"cix/internal/paths"
)

// DB represents a database connection with transaction helpers
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
	"PRAGMA cache_size=-64000",
	"PRAGMA temp_store=MEMORY",
}

// OpenRepo opens or creates the store at <repoRoot>/.cix/index.db.
func OpenRepo(repoRoot string, logger *slog.Logger) (*DB, error) {
	if _, err := paths.EnsureCixDir(repoRoot); err != nil {
		return nil, fmt.Errorf("failed to create .cix directory: %w", err)
	}
	return Open(paths.DBPath(repoRoot), logger)
}

// Open opens or creates a store file. A new file gets the full schema;
// an existing one is migrated to the current schema version.
func Open(dbPath string, logger *slog.Logger) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return setup(conn, dbPath, dbExists, logger)
}

// OpenMemory opens a private in-memory store. Used for the legacy query
// path and tests; the pool is pinned to one connection so every query sees
// the same database.
func OpenMemory(logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	return setup(conn, ":memory:", false, logger)
}

func setup(conn *sql.DB, dbPath string, exists bool, logger *slog.Logger) (*DB, error) {
	for _, pragma := range pragmas {
		if dbPath == ":memory:" && strings.Contains(pragma, "journal_mode") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, classify(fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	db := &DB{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}

	if !exists {
		logger.Debug("Creating new database", "path", dbPath)
		if err := db.initializeSchema(); err != nil {
			_ = conn.Close()
			return nil, classify(fmt.Errorf("failed to initialize schema: %w", err))
		}
	} else {
		if err := db.runMigrations(); err != nil {
			_ = conn.Close()
			return nil, classify(fmt.Errorf("failed to run migrations: %w", err))
		}
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the store file path, or ":memory:".
func (db *DB) Path() string {
	return db.dbPath
}

// Logger returns the store's logger.
func (db *DB) Logger() *slog.Logger {
	return db.logger
}

// WithTx executes fn within a transaction. An error from fn rolls back;
// otherwise the transaction is committed.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction",
				"error", err.Error(),
				"rollback_error", rbErr.Error(),
			)
		}
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Checkpoint folds the WAL back into the main file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if db.dbPath == ":memory:" {
		return nil
	}
	_, err := db.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return classify(err)
}

// IntegrityCheck runs PRAGMA integrity_check and returns the problems found.
func (db *DB) IntegrityCheck(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	return problems, rows.Err()
}

// classify maps lock contention and I/O failures to StoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.CodeOf(err) != errors.InternalError {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"database is locked", "sqlite_busy", "database table is locked", "disk i/o error", "unable to open database"} {
		if strings.Contains(msg, s) {
			return errors.NewStoreUnavailableError("store unavailable", err)
		}
	}
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
