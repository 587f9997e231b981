package incremental

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cix/internal/storage"
	"cix/internal/symbols"
)

// FileResult pairs a change with what was extracted for it.
type FileResult struct {
	Change     ChangedFile
	Extraction *symbols.FileExtraction
	// Err is a ParseError. Extraction, when set, still carries the File
	// symbol and is applied.
	Err error
}

// ApplyStats counts the store writes made for one or more files.
type ApplyStats struct {
	Upserted       int
	Deleted        int
	EdgesWritten   int
	EdgesRemoved   int
	Retargeted     int
	MappingChanged bool
}

func (s *ApplyStats) add(o *ApplyStats) {
	s.Upserted += o.Upserted
	s.Deleted += o.Deleted
	s.EdgesWritten += o.EdgesWritten
	s.EdgesRemoved += o.EdgesRemoved
	s.Retargeted += o.Retargeted
	s.MappingChanged = s.MappingChanged || o.MappingChanged
}

func (s *ApplyStats) addEdges(w *storage.EdgeWrite) {
	s.EdgesWritten += w.Written
	s.EdgesRemoved += w.Removed
	s.MappingChanged = s.MappingChanged || w.MappingChanged
}

// IndexUpdater applies per-file changes to the store. Each call is one
// transaction.
type IndexUpdater struct {
	db      *storage.DB
	symbols *storage.SymbolRepository
	edges   *storage.EdgeRepository
	state   *storage.FileStateRepository
	logger  *slog.Logger
}

// NewIndexUpdater creates a new updater
func NewIndexUpdater(db *storage.DB, logger *slog.Logger) *IndexUpdater {
	return &IndexUpdater{
		db:      db,
		symbols: storage.NewSymbolRepository(db),
		edges:   storage.NewEdgeRepository(db),
		state:   storage.NewFileStateRepository(db),
		logger:  logger,
	}
}

// ApplyFile writes one extracted file: symbols are upserted by id, symbols
// of the file that were not re-extracted are deleted together with the
// edges pointing at them, the file's edges are replaced, and its state is
// recorded. A rename additionally moves incoming edges to the new ids.
func (u *IndexUpdater) ApplyFile(ctx context.Context, res FileResult) (*ApplyStats, error) {
	if res.Extraction == nil {
		return nil, fmt.Errorf("no extraction for %s", res.Change.Path)
	}
	stats := &ApplyStats{}
	err := u.db.WithTx(ctx, func(tx *sql.Tx) error {
		if res.Change.ChangeType == ChangeRenamed {
			if err := u.moveTx(ctx, tx, res.Change.OldPath, res.Change.Path, res.Extraction, stats); err != nil {
				return err
			}
		}
		return u.replaceTx(ctx, tx, res.Change, res.Extraction, stats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", res.Change.Path, err)
	}
	return stats, nil
}

func (u *IndexUpdater) replaceTx(ctx context.Context, tx *sql.Tx, c ChangedFile, fx *symbols.FileExtraction, stats *ApplyStats) error {
	existing, err := u.symbols.IDsForFile(ctx, tx, c.Path)
	if err != nil {
		return err
	}

	fresh := make(map[string]bool, len(fx.Symbols))
	for _, s := range fx.Symbols {
		fresh[s.ID] = true
	}
	n, err := u.symbols.UpsertTx(ctx, tx, fx.Symbols)
	if err != nil {
		return err
	}
	stats.Upserted += n

	var stale []string
	for _, id := range existing {
		if !fresh[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		n, err := u.symbols.DeleteTx(ctx, tx, stale)
		if err != nil {
			return err
		}
		stats.Deleted += n
	}

	w, err := u.edges.ReplaceFileTx(ctx, tx, c.Path, fx.Edges)
	if err != nil {
		return err
	}
	stats.addEdges(w)

	return u.state.SaveTx(ctx, tx, &storage.IndexedFile{
		Path:          c.Path,
		Mtime:         c.Mtime,
		Size:          c.Size,
		Fingerprint:   c.Fingerprint,
		Language:      fx.Language,
		IndexedAt:     time.Now(),
		SymbolCount:   len(fx.Symbols),
		ParseWarnings: len(fx.Warnings),
	})
}

// moveTx retires oldPath in favour of newPath. Edges from other files that
// pointed at a symbol of the old file follow it when the new file defines
// the same qualified name.
func (u *IndexUpdater) moveTx(ctx context.Context, tx *sql.Tx, oldPath, newPath string, fx *symbols.FileExtraction, stats *ApplyStats) error {
	oldIDs, err := u.symbols.IDsForFile(ctx, tx, oldPath)
	if err != nil {
		return err
	}

	fresh := make(map[string]bool, len(fx.Symbols))
	for _, s := range fx.Symbols {
		fresh[s.ID] = true
	}
	moved := make(map[string]string)
	for _, id := range oldIDs {
		if newID := renamedID(oldPath, newPath, id); fresh[newID] {
			moved[id] = newID
		}
	}
	n, err := u.edges.RetargetTx(ctx, tx, moved)
	if err != nil {
		return err
	}
	stats.Retargeted += n

	n, err = u.symbols.DeleteTx(ctx, tx, oldIDs)
	if err != nil {
		return err
	}
	stats.Deleted += n

	w, err := u.edges.DeleteFileTx(ctx, tx, oldPath)
	if err != nil {
		return err
	}
	stats.addEdges(w)
	return u.state.DeleteTx(ctx, tx, oldPath)
}

// renamedID rewrites a symbol id of oldPath for newPath.
func renamedID(oldPath, newPath, id string) string {
	if id == symbols.FileID(oldPath) {
		return symbols.FileID(newPath)
	}
	rest, ok := strings.CutPrefix(id, oldPath+"::")
	if !ok {
		return ""
	}
	return symbols.ID(newPath, rest)
}

// DeleteFile removes every symbol, edge and state row of a vanished file.
func (u *IndexUpdater) DeleteFile(ctx context.Context, path string) (*ApplyStats, error) {
	stats := &ApplyStats{}
	err := u.db.WithTx(ctx, func(tx *sql.Tx) error {
		ids, err := u.symbols.IDsForFile(ctx, tx, path)
		if err != nil {
			return err
		}
		n, err := u.symbols.DeleteTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		stats.Deleted += n

		w, err := u.edges.DeleteFileTx(ctx, tx, path)
		if err != nil {
			return err
		}
		stats.addEdges(w)
		return u.state.DeleteTx(ctx, tx, path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return stats, nil
}

// TouchFiles refreshes the recorded mtime and size of files whose content
// is unchanged.
func (u *IndexUpdater) TouchFiles(ctx context.Context, changes []ChangedFile) error {
	if len(changes) == 0 {
		return nil
	}
	return u.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, c := range changes {
			if err := u.state.TouchTx(ctx, tx, c.Path, c.Mtime, c.Size); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordRun stores the run id and time in index_meta.
func (u *IndexUpdater) RecordRun(ctx context.Context, runID string, at time.Time) error {
	return u.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := u.db.SetMetaTx(ctx, tx, storage.MetaLastRun, runID); err != nil {
			return err
		}
		return u.db.SetMetaTx(ctx, tx, storage.MetaLastRunAt, at.UTC().Format(time.RFC3339))
	})
}
