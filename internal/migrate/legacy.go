// Package migrate moves a legacy line-delimited index into the unified
// store. The new database is built beside the live one, verified against
// the source and swapped in with a single rename.
package migrate

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"cix/internal/storage"
	"cix/internal/symbols"
)

// Legacy file names inside a legacy directory.
const (
	SymbolsFile = "symbols.jsonl"
	EdgesFile   = "edges.jsonl"
)

// maxLineBytes bounds a single legacy record; content bodies can be large.
const maxLineBytes = 16 << 20

// legacySymbol is one line of symbols.jsonl. A deleted line retracts the id.
type legacySymbol struct {
	symbols.Symbol
	Deleted bool `json:"deleted,omitempty"`
}

// legacyEdge is one line of edges.jsonl.
type legacyEdge struct {
	symbols.Edge
	OwnerFile string `json:"owner_file,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// Edge is a legacy edge with the file that owns it.
type Edge struct {
	symbols.Edge
	OwnerFile string
}

// Legacy is the resolved content of a legacy directory: later lines with
// the same id supersede earlier ones.
type Legacy struct {
	Dir     string
	Symbols []symbols.Symbol // sorted by id
	Edges   []Edge           // sorted by owner file, then key
	// Lines is the number of records read, Superseded how many were
	// replaced or retracted by a later line.
	Lines      int
	Superseded int
}

// LoadLegacy reads symbols.jsonl and edges.jsonl from dir. A missing edges
// file is an empty edge set; a missing symbols file or a malformed line is
// an error naming the file and line.
func LoadLegacy(ctx context.Context, dir string) (*Legacy, error) {
	l := &Legacy{Dir: dir}

	syms := make(map[string]symbols.Symbol)
	err := readLines(ctx, filepath.Join(dir, SymbolsFile), false, func(lineNo int, raw []byte) error {
		var rec legacySymbol
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%s:%d: %w", SymbolsFile, lineNo, err)
		}
		if rec.ID == "" {
			return fmt.Errorf("%s:%d: record without id", SymbolsFile, lineNo)
		}
		l.Lines++
		if _, ok := syms[rec.ID]; ok {
			l.Superseded++
		}
		if rec.Deleted {
			delete(syms, rec.ID)
			return nil
		}
		syms[rec.ID] = normalizeSymbol(rec.Symbol)
		return nil
	})
	if err != nil {
		return nil, err
	}

	edges := make(map[string]Edge)
	err = readLines(ctx, filepath.Join(dir, EdgesFile), true, func(lineNo int, raw []byte) error {
		var rec legacyEdge
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%s:%d: %w", EdgesFile, lineNo, err)
		}
		if rec.SourceID == "" || rec.TargetID == "" {
			return fmt.Errorf("%s:%d: edge without endpoints", EdgesFile, lineNo)
		}
		ref, ok := symbols.ParseRefType(string(rec.RefType))
		if !ok {
			return fmt.Errorf("%s:%d: unknown ref_type %q", EdgesFile, lineNo, rec.RefType)
		}
		rec.RefType = ref
		if rec.Confidence != nil {
			c, ok := symbols.ParseConfidence(string(*rec.Confidence))
			if !ok {
				return fmt.Errorf("%s:%d: unknown confidence %q", EdgesFile, lineNo, *rec.Confidence)
			}
			rec.Confidence = &c
		}
		l.Lines++
		key := rec.Key()
		if _, ok := edges[key]; ok {
			l.Superseded++
		}
		if rec.Deleted {
			delete(edges, key)
			return nil
		}
		owner := rec.OwnerFile
		if owner == "" {
			owner = ownerOf(rec.SourceID)
		}
		edges[key] = Edge{Edge: rec.Edge, OwnerFile: owner}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Symbols = make([]symbols.Symbol, 0, len(syms))
	for _, s := range syms {
		l.Symbols = append(l.Symbols, s)
	}
	sort.Slice(l.Symbols, func(i, j int) bool { return l.Symbols[i].ID < l.Symbols[j].ID })

	l.Edges = make([]Edge, 0, len(edges))
	for _, e := range edges {
		l.Edges = append(l.Edges, e)
	}
	sort.Slice(l.Edges, func(i, j int) bool {
		if l.Edges[i].OwnerFile != l.Edges[j].OwnerFile {
			return l.Edges[i].OwnerFile < l.Edges[j].OwnerFile
		}
		return l.Edges[i].Key() < l.Edges[j].Key()
	})
	return l, nil
}

func readLines(ctx context.Context, path string, optional bool, fn func(lineNo int, raw []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening legacy file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if err := fn(lineNo, raw); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return nil
}

// normalizeSymbol fills fields legacy writers left empty so the record
// satisfies the unified schema. Present fields are never altered.
func normalizeSymbol(s symbols.Symbol) symbols.Symbol {
	path, qualified := symbols.SplitID(s.ID)
	if s.FilePath == "" {
		s.FilePath = path
	}
	if s.QualifiedName == "" {
		s.QualifiedName = qualified
	}
	if s.Name == "" {
		s.Name = symbols.TargetName(s.ID)
	}
	if t, ok := symbols.ParseSymbolType(string(s.Type)); ok {
		s.Type = t
	} else {
		s.Type = symbols.TypeUnknown
	}
	if s.Domain == "" {
		s.Domain = symbols.DomainFor(s.FilePath)
	}
	if s.Layer == "" {
		s.Layer = symbols.LayerUnknown
	}
	if len(s.Sources) == 0 {
		s.Sources = []string{symbols.SourceLegacy}
	}
	return s
}

func ownerOf(sourceID string) string {
	if symbols.IsPlaceholder(sourceID) || symbols.IsImport(sourceID) {
		return ""
	}
	path, _ := symbols.SplitID(sourceID)
	return path
}

// write inserts every legacy record into db, one transaction per batch.
func (l *Legacy) write(ctx context.Context, db *storage.DB, batch int) error {
	syms := storage.NewSymbolRepository(db)
	edges := storage.NewEdgeRepository(db)

	for start := 0; start < len(l.Symbols); start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batch, len(l.Symbols))
		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := syms.UpsertTx(ctx, tx, l.Symbols[start:end])
			return err
		})
		if err != nil {
			return err
		}
	}

	// Edges are grouped by owner so each insert carries its owning file.
	for start := 0; start < len(l.Edges); {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batch, len(l.Edges))
		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			for i := start; i < end; {
				owner := l.Edges[i].OwnerFile
				var group []symbols.Edge
				for ; i < end && l.Edges[i].OwnerFile == owner; i++ {
					group = append(group, l.Edges[i].Edge)
				}
				if _, err := edges.InsertTx(ctx, tx, owner, group); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		start = end
	}
	return nil
}

// OpenLegacyStore loads a legacy directory into a private in-memory store
// so queries can be answered from legacy data without touching the live
// index.
func OpenLegacyStore(ctx context.Context, dir string, logger *slog.Logger) (*storage.DB, error) {
	l, err := LoadLegacy(ctx, dir)
	if err != nil {
		return nil, err
	}
	db, err := storage.OpenMemory(logger)
	if err != nil {
		return nil, err
	}
	if err := l.write(ctx, db, defaultBatch); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("Legacy store loaded", "dir", dir, "symbols", len(l.Symbols), "edges", len(l.Edges))
	return db, nil
}
