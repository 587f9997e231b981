package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cix/internal/symbols"
)

// IndexedFile is the index state recorded for one file.
type IndexedFile struct {
	Path          string    `json:"path"`
	Mtime         int64     `json:"mtime"`
	Size          int64     `json:"size"`
	Fingerprint   string    `json:"fingerprint"`
	Language      string    `json:"language"`
	IndexedAt     time.Time `json:"indexed_at"`
	SymbolCount   int       `json:"symbol_count"`
	ParseWarnings int       `json:"parse_warnings"`
}

// FileStateRepository provides access to the indexed_files table
type FileStateRepository struct {
	db *DB
}

// NewFileStateRepository creates a new file state repository
func NewFileStateRepository(db *DB) *FileStateRepository {
	return &FileStateRepository{db: db}
}

// SaveTx records the state of a freshly indexed file.
func (r *FileStateRepository) SaveTx(ctx context.Context, tx *sql.Tx, f *IndexedFile) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO indexed_files (path, mtime, size, fingerprint, language, indexed_at, symbol_count, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			size = excluded.size,
			fingerprint = excluded.fingerprint,
			language = excluded.language,
			indexed_at = excluded.indexed_at,
			symbol_count = excluded.symbol_count,
			warnings = excluded.warnings
	`, f.Path, f.Mtime, f.Size, f.Fingerprint, f.Language, f.IndexedAt.UTC().Format(time.RFC3339Nano), f.SymbolCount, f.ParseWarnings)
	if err != nil {
		return fmt.Errorf("failed to save index state for %s: %w", f.Path, err)
	}
	return nil
}

// TouchTx refreshes mtime and size of a file whose content did not change.
func (r *FileStateRepository) TouchTx(ctx context.Context, tx *sql.Tx, path string, mtime, size int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE indexed_files SET mtime = ?, size = ? WHERE path = ?", mtime, size, path)
	if err != nil {
		return fmt.Errorf("failed to touch index state for %s: %w", path, err)
	}
	return nil
}

// DeleteTx forgets a file.
func (r *FileStateRepository) DeleteTx(ctx context.Context, tx *sql.Tx, path string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM indexed_files WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to delete index state for %s: %w", path, err)
	}
	return nil
}

// Get returns the state of one file. Returns nil, nil when absent.
func (r *FileStateRepository) Get(ctx context.Context, path string) (*IndexedFile, error) {
	all, err := r.list(ctx, " WHERE path = ?", path)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[0], nil
}

// All returns every tracked file keyed by path.
func (r *FileStateRepository) All(ctx context.Context) (map[string]IndexedFile, error) {
	list, err := r.list(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]IndexedFile, len(list))
	for _, f := range list {
		out[f.Path] = f
	}
	return out, nil
}

// Count returns the number of tracked files.
func (r *FileStateRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM indexed_files").Scan(&n)
	return n, classify(err)
}

func (r *FileStateRepository) list(ctx context.Context, where string, args ...any) ([]IndexedFile, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT path, mtime, size, fingerprint, language, indexed_at, symbol_count, warnings
		FROM indexed_files`+where+` ORDER BY path`, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read index state: %w", err))
	}
	defer rows.Close()

	var out []IndexedFile
	for rows.Next() {
		var (
			f         IndexedFile
			indexedAt string
		)
		if err := rows.Scan(&f.Path, &f.Mtime, &f.Size, &f.Fingerprint, &f.Language, &indexedAt, &f.SymbolCount, &f.ParseWarnings); err != nil {
			return nil, err
		}
		f.IndexedAt, _ = time.Parse(time.RFC3339Nano, indexedAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Meta keys written by the indexer and migrator.
const (
	MetaLastRun      = "last_run"
	MetaLastRunAt    = "last_run_at"
	MetaMigratedFrom = "migrated_from"
	MetaMigratedAt   = "migrated_at"
)

// SetMetaTx stores a key/value pair in index_meta.
func (db *DB) SetMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta returns a value from index_meta, or "" when absent.
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, classify(err)
}

// LineageRepository provides access to the lineage table
type LineageRepository struct {
	db *DB
}

// NewLineageRepository creates a new lineage repository
func NewLineageRepository(db *DB) *LineageRepository {
	return &LineageRepository{db: db}
}

// ReplaceTx swaps the whole lineage table for recs.
func (r *LineageRepository) ReplaceTx(ctx context.Context, tx *sql.Tx, recs []symbols.LineageRecord) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM lineage"); err != nil {
		return fmt.Errorf("failed to clear lineage: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO lineage (id, source_id, sink_id, path_length, min_confidence, is_complete, path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare lineage insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		path, err := json.Marshal(rec.Path)
		if err != nil {
			return err
		}
		var conf any
		if rec.MinConfidence != nil {
			conf = string(*rec.MinConfidence)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.SourceID, rec.SinkID, rec.PathLength, conf, rec.IsComplete, string(path)); err != nil {
			return fmt.Errorf("failed to insert lineage %s: %w", rec.ID, err)
		}
	}
	return nil
}

// LineageFilter narrows List.
type LineageFilter struct {
	// Complete filters by completeness when set.
	Complete *bool
	// SymbolIDs keeps records whose source or sink is one of the ids.
	SymbolIDs []string
	Limit     int
	Offset    int
}

// List returns one page of lineage records and the total number of matches.
func (r *LineageRepository) List(ctx context.Context, f LineageFilter) ([]symbols.LineageRecord, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Complete != nil {
		conds = append(conds, "is_complete = ?")
		args = append(args, *f.Complete)
	}
	if len(f.SymbolIDs) > 0 {
		in, ids := inList(f.SymbolIDs)
		conds = append(conds, "(source_id IN ("+in+") OR sink_id IN ("+in+"))")
		args = append(args, ids...)
		args = append(args, ids...)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM lineage"+where, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("failed to count lineage: %w", err))
	}

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, source_id, sink_id, path_length, min_confidence, is_complete, path
		FROM lineage`+where+`
		ORDER BY source_id, sink_id LIMIT ? OFFSET ?`,
		append(args, limitOrAll(f.Limit), f.Offset)...)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to list lineage: %w", err))
	}
	defer rows.Close()

	var out []symbols.LineageRecord
	for rows.Next() {
		var (
			rec  symbols.LineageRecord
			conf sql.NullString
			path string
		)
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.SinkID, &rec.PathLength, &conf, &rec.IsComplete, &path); err != nil {
			return nil, 0, err
		}
		if conf.Valid {
			c := symbols.Confidence(conf.String)
			rec.MinConfidence = &c
		}
		if err := json.Unmarshal([]byte(path), &rec.Path); err != nil {
			return nil, 0, fmt.Errorf("corrupt lineage path for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// Count returns the number of lineage records.
func (r *LineageRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM lineage").Scan(&n)
	return n, classify(err)
}

// EdgeCount returns the total number of edges across all partitions.
func (db *DB) EdgeCount(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges_all").Scan(&n)
	return n, classify(err)
}
