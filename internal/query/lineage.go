package query

import (
	"context"
	"strings"

	"cix/internal/errors"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// LineageOptions filters LineageList and LineageSearch.
type LineageOptions struct {
	// Complete keeps only complete or only incomplete records when set.
	Complete *bool
	// Query names the source or sink symbols to match; LineageSearch only.
	Query  string
	Limit  int
	Offset int
}

// LineageEntry is a lineage record with its endpoint names.
type LineageEntry struct {
	symbols.LineageRecord
	SourceName string `json:"source_name"`
	SinkName   string `json:"sink_name"`
}

// LineageList returns lineage records ordered by source and sink.
func (e *Engine) LineageList(ctx context.Context, opts LineageOptions) (*Result[[]LineageEntry], error) {
	return e.lineageQuery(ctx, opts, nil)
}

// LineageSearch returns lineage records whose source or sink matches the
// query by name or qualified name.
func (e *Engine) LineageSearch(ctx context.Context, opts LineageOptions) (*Result[[]LineageEntry], error) {
	q := strings.TrimSpace(opts.Query)
	if q == "" {
		return nil, errors.NewValidationError("query", "lineage search query is required")
	}
	byName, err := e.symbols.ByName(ctx, q, e.cfg.MaxLimit)
	if err != nil {
		return nil, err
	}
	byQual, err := e.symbols.ByQualified(ctx, q, e.cfg.MaxLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(byName)+len(byQual))
	for _, s := range append(byName, byQual...) {
		ids = append(ids, s.ID)
	}
	ids = dedupStrings(ids)
	if len(ids) == 0 {
		limit, offset, err := e.page(opts.Limit, opts.Offset)
		if err != nil {
			return nil, err
		}
		return &Result[[]LineageEntry]{Data: []LineageEntry{}, Meta: e.meta(0, limit, offset)}, nil
	}
	return e.lineageQuery(ctx, opts, ids)
}

func (e *Engine) lineageQuery(ctx context.Context, opts LineageOptions, ids []string) (*Result[[]LineageEntry], error) {
	limit, offset, err := e.page(opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	recs, total, err := e.lineage.List(ctx, storage.LineageFilter{
		Complete:  opts.Complete,
		SymbolIDs: ids,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}

	var want []string
	for _, r := range recs {
		want = append(want, r.SourceID, r.SinkID)
	}
	syms, err := e.symbols.GetMany(ctx, dedupStrings(want))
	if err != nil {
		return nil, err
	}
	name := func(id string) string {
		if s := syms[id]; s != nil {
			return s.QualifiedName
		}
		return symbols.TargetName(id)
	}

	out := make([]LineageEntry, len(recs))
	for i, r := range recs {
		out[i] = LineageEntry{LineageRecord: r, SourceName: name(r.SourceID), SinkName: name(r.SinkID)}
	}
	return &Result[[]LineageEntry]{Data: out, Meta: e.meta(total, limit, offset)}, nil
}
