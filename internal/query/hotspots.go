package query

import (
	"context"

	"cix/internal/storage"
	"cix/internal/symbols"
)

// HotspotOptions filters Hotspots.
type HotspotOptions struct {
	Layer string
	Type  string
	Limit int
}

// HotspotEntry is a symbol ranked by edge degree.
type HotspotEntry struct {
	symbols.Symbol
	InCount  int `json:"in_count"`
	OutCount int `json:"out_count"`
	Degree   int `json:"degree"`
}

// Hotspots ranks symbols by incoming plus outgoing edges.
func (e *Engine) Hotspots(ctx context.Context, opts HotspotOptions) (*Result[[]HotspotEntry], error) {
	limit, _, err := e.page(opts.Limit, 0)
	if err != nil {
		return nil, err
	}
	layer, err := parseLayer(opts.Layer)
	if err != nil {
		return nil, err
	}
	typ, err := parseType(opts.Type)
	if err != nil {
		return nil, err
	}

	rows, err := e.edges.DegreeCounts(ctx, storage.HotspotFilter{Layer: layer, Type: typ, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]HotspotEntry, len(rows))
	for i, h := range rows {
		out[i] = HotspotEntry{
			Symbol:   h.Symbol,
			InCount:  h.InCount,
			OutCount: h.OutCount,
			Degree:   h.InCount + h.OutCount,
		}
	}
	return &Result[[]HotspotEntry]{Data: out, Meta: e.meta(len(out), limit, 0)}, nil
}
