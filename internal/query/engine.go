// Package query answers read-only questions against the unified store:
// lookups, ranked search, graph traversal, hotspots, impact and lineage.
package query

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"cix/internal/config"
	"cix/internal/errors"
	"cix/internal/migrate"
	"cix/internal/paths"
	"cix/internal/project"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// Answer sources reported in Meta.Source.
const (
	SourceIndex  = "index"
	SourceLegacy = "legacy"
	SourceGraph  = "graph"
)

// Warnings reported alongside partial or degraded answers.
const (
	WarnLegacy        = "legacy source in use"
	WarnFTSPartial    = "fts unavailable, results partial"
	WarnUnresolved    = "some edge targets could not be resolved"
	WarnImpactPartial = "mapping graph truncated at node limit"
)

// Meta describes one answer: paging, where it came from and any
// degradation.
type Meta struct {
	Total    int
	Limit    int
	Offset   int
	Source   string
	Warnings []string
}

// Result is a query answer with its metadata.
type Result[T any] struct {
	Data T
	Meta Meta
}

// Engine runs queries against one store. It holds no per-query state and
// is safe for concurrent use.
type Engine struct {
	db      *storage.DB
	symbols *storage.SymbolRepository
	edges   *storage.EdgeRepository
	lineage *storage.LineageRepository
	cfg     *config.QueryConfig
	logger  *slog.Logger
	source  string
	owned   bool
	project *project.Info
}

// NewEngine creates an engine over an open store. The caller keeps
// ownership of db.
func NewEngine(db *storage.DB, cfg *config.Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Engine{
		db:      db,
		symbols: storage.NewSymbolRepository(db),
		edges:   storage.NewEdgeRepository(db),
		lineage: storage.NewLineageRepository(db),
		cfg:     &cfg.Query,
		logger:  logger,
		source:  SourceIndex,
	}
}

// Open creates an engine for the repository at repoRoot. With
// query.useLegacy set, the legacy line-delimited index is loaded into
// memory and answers are marked as coming from it.
func Open(ctx context.Context, repoRoot string, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.Query.UseLegacy {
		dir := cfg.Query.LegacyPath
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(repoRoot, dir)
		}
		db, err := migrate.OpenLegacyStore(ctx, dir, logger)
		if err != nil {
			return nil, errors.NewStoreUnavailableError("legacy index unavailable", err).
				WithDetails(map[string]string{"path": dir})
		}
		e := NewEngine(db, cfg, logger)
		e.source = SourceLegacy
		e.owned = true
		e.project = project.Detect(repoRoot)
		return e, nil
	}

	dbPath := paths.DBPath(repoRoot)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, errors.NewStoreUnavailableError("no index found, run `cix index` first", err).
			WithDetails(map[string]string{"path": dbPath})
	}
	db, err := storage.Open(dbPath, logger)
	if err != nil {
		return nil, err
	}
	e := NewEngine(db, cfg, logger)
	e.owned = true
	e.project = project.Detect(repoRoot)
	return e, nil
}

// Close releases the store when the engine opened it.
func (e *Engine) Close() error {
	if e.owned {
		return e.db.Close()
	}
	return nil
}

// Source names where answers come from.
func (e *Engine) Source() string {
	return e.source
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) meta(total, limit, offset int, warnings ...string) Meta {
	m := Meta{Total: total, Limit: limit, Offset: offset, Source: e.source}
	if e.source == SourceLegacy {
		m.Warnings = append(m.Warnings, WarnLegacy)
	}
	m.Warnings = append(m.Warnings, warnings...)
	return m
}

// page validates a limit/offset pair. A zero limit takes the default.
func (e *Engine) page(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit < 0 || limit > e.cfg.MaxLimit {
		return 0, 0, errors.NewValidationError("limit",
			"limit must be between 1 and "+strconv.Itoa(e.cfg.MaxLimit))
	}
	if offset < 0 {
		return 0, 0, errors.NewValidationError("offset", "offset must not be negative")
	}
	return limit, offset, nil
}

func parseType(s string) (symbols.SymbolType, error) {
	if s == "" {
		return "", nil
	}
	t, ok := symbols.ParseSymbolType(s)
	if !ok {
		return "", errors.NewValidationError("type", "unknown symbol type: "+s)
	}
	return t, nil
}

func parseLayer(s string) (symbols.Layer, error) {
	if s == "" {
		return "", nil
	}
	l, ok := symbols.ParseLayer(s)
	if !ok {
		return "", errors.NewValidationError("layer", "unknown layer: "+s)
	}
	return l, nil
}

func parseDomain(s string) (symbols.Domain, error) {
	if s == "" {
		return "", nil
	}
	d, ok := symbols.ParseDomain(s)
	if !ok {
		return "", errors.NewValidationError("domain", "unknown domain: "+s)
	}
	return d, nil
}

func parseRefTypes(in []string) ([]symbols.RefType, error) {
	var out []symbols.RefType
	for _, s := range in {
		r, ok := symbols.ParseRefType(s)
		if !ok {
			return nil, errors.NewValidationError("ref", "unknown edge type: "+s)
		}
		out = append(out, r)
	}
	return out, nil
}

// requireSymbol loads id or returns NotFound.
func (e *Engine) requireSymbol(ctx context.Context, id string) (*symbols.Symbol, error) {
	if id == "" {
		return nil, errors.NewValidationError("id", "symbol id is required")
	}
	s, err := e.symbols.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.NewNotFoundError("symbol", id)
	}
	return s, nil
}
