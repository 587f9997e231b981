package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cix/internal/symbols"
)

// Schema version tracking
const currentSchemaVersion = 1

// EdgeTables lists the partitioned edge tables in a fixed order.
var EdgeTables = []string{
	edgeTable(symbols.PartitionCalls),
	edgeTable(symbols.PartitionImports),
	edgeTable(symbols.PartitionInheritance),
	edgeTable(symbols.PartitionMapping),
}

func edgeTable(partition string) string {
	return "edges_" + partition
}

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createSymbolsTable(tx); err != nil {
			return err
		}
		if err := createEdgeTables(tx); err != nil {
			return err
		}
		if err := createLineageTable(tx); err != nil {
			return err
		}
		if err := createIndexStateTables(tx); err != nil {
			return err
		}
		if err := createFTSSchema(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Debug("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	// Add migration functions here as the schema evolves.
	return nil
}

// getSchemaVersion returns the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var version int
	err := db.conn.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// SchemaVersion reports the schema version recorded in the store.
func (db *DB) SchemaVersion() (int, error) {
	return db.getSchemaVersion()
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", version)
	if err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// createSymbolsTable keeps an integer key (pk) so the FTS index can use the
// table as external content.
func createSymbolsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			pk INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			qualified_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			line_start INTEGER,
			line_end INTEGER,
			domain TEXT NOT NULL,
			layer TEXT NOT NULL,
			category TEXT NOT NULL,
			content TEXT,
			metadata TEXT,
			language TEXT NOT NULL DEFAULT '',
			sources TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbols table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_type ON symbols(type)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_layer ON symbols(layer)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_qualified ON symbols(qualified_name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_category ON symbols(category)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_domain ON symbols(domain)",
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createEdgeTables creates one table per ref-type partition plus the
// edges_all view. target_name holds the bare name a placeholder resolves by.
func createEdgeTables(tx *sql.Tx) error {
	for _, table := range EdgeTables {
		_, err := tx.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id INTEGER PRIMARY KEY,
				source_id TEXT NOT NULL,
				target_id TEXT NOT NULL,
				target_name TEXT NOT NULL DEFAULT '',
				ref_type TEXT NOT NULL,
				confidence TEXT,
				owner_file TEXT NOT NULL,
				line INTEGER NOT NULL DEFAULT 0,
				UNIQUE(source_id, ref_type, target_id)
			)
		`, table))
		if err != nil {
			return fmt.Errorf("failed to create %s table: %w", table, err)
		}

		indexes := []string{
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source_id)", table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_target ON %[1]s(target_id)", table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_target_name ON %[1]s(target_name)", table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_owner ON %[1]s(owner_file)", table),
		}
		for _, idx := range indexes {
			if _, err := tx.Exec(idx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}
	}

	view := "CREATE VIEW IF NOT EXISTS edges_all AS "
	for i, table := range EdgeTables {
		if i > 0 {
			view += " UNION ALL "
		}
		view += fmt.Sprintf("SELECT source_id, target_id, target_name, ref_type, confidence, owner_file, line FROM %s", table)
	}
	if _, err := tx.Exec(view); err != nil {
		return fmt.Errorf("failed to create edges_all view: %w", err)
	}
	return nil
}

func createLineageTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS lineage (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			sink_id TEXT NOT NULL,
			path_length INTEGER NOT NULL,
			min_confidence TEXT,
			is_complete INTEGER NOT NULL,
			path TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create lineage table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_lineage_source ON lineage(source_id)",
		"CREATE INDEX IF NOT EXISTS idx_lineage_sink ON lineage(sink_id)",
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func createIndexStateTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS indexed_files (
			path TEXT PRIMARY KEY,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			indexed_at TEXT NOT NULL,
			symbol_count INTEGER NOT NULL DEFAULT 0,
			warnings INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create indexed_files table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_indexed_files_fp ON indexed_files(fingerprint)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS index_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index_meta table: %w", err)
	}
	return nil
}
