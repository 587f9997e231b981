package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

// bm25 column weights for name, qualified_name, content.
const (
	weightName      = 10.0
	weightQualified = 5.0
	weightContent   = 1.0
)

// createFTSSchema creates the symbols_fts index over the symbols table and
// the triggers that keep it in sync.
func createFTSSchema(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
			name,
			qualified_name,
			content,
			content='symbols',
			content_rowid='pk',
			tokenize="unicode61 tokenchars '_'"
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbols_fts table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ai AFTER INSERT ON symbols BEGIN
			INSERT INTO symbols_fts(rowid, name, qualified_name, content)
			VALUES (new.pk, new.name, new.qualified_name, new.content);
		END`,

		`CREATE TRIGGER IF NOT EXISTS symbols_fts_au AFTER UPDATE ON symbols BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, content)
			VALUES ('delete', old.pk, old.name, old.qualified_name, old.content);
			INSERT INTO symbols_fts(rowid, name, qualified_name, content)
			VALUES (new.pk, new.name, new.qualified_name, new.content);
		END`,

		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ad AFTER DELETE ON symbols BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, content)
			VALUES ('delete', old.pk, old.name, old.qualified_name, old.content);
		END`,
	}
	for _, trigger := range triggers {
		if _, err := tx.Exec(trigger); err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
	}
	return nil
}

// FTSHit is one full-text match. Relevance is the negated bm25 rank, so
// larger is better.
type FTSHit struct {
	ID        string
	Relevance float64
}

// FTSSearch runs a prefix full-text query over name, qualified name and
// content. A query with no searchable tokens returns no hits.
func (db *DB) FTSSearch(ctx context.Context, query string, limit int) ([]FTSHit, error) {
	match := buildFTSQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, bm25(symbols_fts, ?, ?, ?) AS rank
		FROM symbols_fts
		JOIN symbols s ON s.pk = symbols_fts.rowid
		WHERE symbols_fts MATCH ?
		ORDER BY rank, s.id
		LIMIT ?
	`, weightName, weightQualified, weightContent, match, limit)
	if err != nil {
		return nil, classify(fmt.Errorf("fts search failed: %w", err))
	}
	defer rows.Close()

	var hits []FTSHit
	for rows.Next() {
		var (
			h    FTSHit
			rank float64
		)
		if err := rows.Scan(&h.ID, &rank); err != nil {
			return nil, err
		}
		h.Relevance = -rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// RebuildFTS regenerates the full-text index from the symbols table.
func (db *DB) RebuildFTS(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "INSERT INTO symbols_fts(symbols_fts) VALUES('rebuild')")
	return classify(err)
}

// FTSIntegrityCheck verifies the full-text index against its content table.
func (db *DB) FTSIntegrityCheck(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "INSERT INTO symbols_fts(symbols_fts) VALUES('integrity-check')")
	return classify(err)
}

// buildFTSQuery turns free text into an OR of quoted prefix terms.
func buildFTSQuery(query string) string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, `"`+escapeFTS5Query(tok)+`"*`)
	}
	return strings.Join(terms, " OR ")
}

// escapeFTS5Query escapes quotes inside a quoted FTS5 string
func escapeFTS5Query(query string) string {
	return strings.ReplaceAll(query, `"`, `""`)
}
