// Package lineage derives lineage records from MapsTo edges: resolved paths
// from data-source symbols (Database layer) to data sinks (View and
// Frontend layers).
package lineage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"cix/internal/graph"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// namespace seeds the deterministic record ids.
var namespace = uuid.MustParse("3b5e0c7a-58f1-4d2e-9a61-0f4c2d8e7b19")

// RecordID is the stable id of the record linking source to sink.
func RecordID(sourceID, sinkID string) string {
	return uuid.NewSHA1(namespace, []byte(sourceID+"|"+sinkID)).String()
}

// IsSink reports whether a layer consumes data.
func IsSink(l symbols.Layer) bool {
	return l == symbols.LayerView || l == symbols.LayerFrontend
}

// Deriver rebuilds the lineage table from the edge tables.
type Deriver struct {
	db      *storage.DB
	symbols *storage.SymbolRepository
	edges   *storage.EdgeRepository
	lineage *storage.LineageRepository
	logger  *slog.Logger
}

// NewDeriver creates a deriver over db.
func NewDeriver(db *storage.DB, logger *slog.Logger) *Deriver {
	return &Deriver{
		db:      db,
		symbols: storage.NewSymbolRepository(db),
		edges:   storage.NewEdgeRepository(db),
		lineage: storage.NewLineageRepository(db),
		logger:  logger,
	}
}

// Recompute derives every record and replaces the lineage table with them.
func (d *Deriver) Recompute(ctx context.Context) (int, error) {
	recs, err := d.Derive(ctx)
	if err != nil {
		return 0, err
	}
	err = d.db.WithTx(ctx, func(tx *sql.Tx) error {
		return d.lineage.ReplaceTx(ctx, tx, recs)
	})
	if err != nil {
		return 0, err
	}
	d.logger.Debug("lineage recomputed", "records", len(recs))
	return len(recs), nil
}

// Derive computes lineage records without writing them.
func (d *Deriver) Derive(ctx context.Context) ([]symbols.LineageRecord, error) {
	g, syms, err := d.MappingGraph(ctx)
	if err != nil {
		return nil, err
	}
	if g.NumEdges() == 0 {
		return nil, nil
	}
	layer := func(id string) symbols.Layer {
		if s, ok := syms[id]; ok {
			return s.Layer
		}
		return symbols.LayerUnknown
	}
	return Build(g, layer), nil
}

// MappingGraph loads every MapsTo edge with placeholder endpoints resolved,
// together with the stored symbols behind the graph's nodes.
func (d *Deriver) MappingGraph(ctx context.Context) (*graph.Graph, map[string]*symbols.Symbol, error) {
	edges, err := d.edges.All(ctx, []symbols.RefType{symbols.RefMapsTo})
	if err != nil {
		return nil, nil, fmt.Errorf("loading mapping edges: %w", err)
	}

	g := graph.NewGraph()
	if len(edges) == 0 {
		return g, map[string]*symbols.Symbol{}, nil
	}
	res := NewResolver(d.symbols)
	for _, e := range edges {
		src, err := res.Resolve(ctx, e.SourceID)
		if err != nil {
			return nil, nil, err
		}
		dst, err := res.Resolve(ctx, e.TargetID)
		if err != nil {
			return nil, nil, err
		}
		if src == dst {
			continue
		}
		g.AddEdge(src, dst, e.Confidence)
	}

	var known []string
	for _, id := range g.Nodes() {
		if !symbols.IsPlaceholder(id) && !symbols.IsImport(id) {
			known = append(known, id)
		}
	}
	syms, err := d.symbols.GetMany(ctx, known)
	if err != nil {
		return nil, nil, err
	}
	return g, syms, nil
}

// Build walks g from every source node. A source is a node with outgoing
// edges that is either in the Database layer or has no incoming edges, and
// is not itself a sink. Each reachable sink yields a complete record; a
// source that reaches no sink yields one incomplete record ending at the
// furthest node reached.
func Build(g *graph.Graph, layer func(id string) symbols.Layer) []symbols.LineageRecord {
	isSink := func(id string) bool { return IsSink(layer(id)) }

	var recs []symbols.LineageRecord
	for _, src := range g.Nodes() {
		if g.OutDegree(src) == 0 || isSink(src) {
			continue
		}
		if layer(src) != symbols.LayerDatabase && g.InDegree(src) > 0 {
			continue
		}

		reached := g.Walk(src, isSink)
		found := false
		var furthest *graph.Reach
		for i := range reached {
			r := &reached[i]
			if isSink(r.ID) {
				found = true
				recs = append(recs, record(src, r, true))
			}
			if furthest == nil || len(r.Path) > len(furthest.Path) {
				furthest = r
			}
		}
		if !found && furthest != nil {
			recs = append(recs, record(src, furthest, false))
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SourceID != recs[j].SourceID {
			return recs[i].SourceID < recs[j].SourceID
		}
		return recs[i].SinkID < recs[j].SinkID
	})
	return recs
}

func record(src string, r *graph.Reach, complete bool) symbols.LineageRecord {
	return symbols.LineageRecord{
		ID:            RecordID(src, r.ID),
		SourceID:      src,
		SinkID:        r.ID,
		PathLength:    len(r.Path) - 1,
		MinConfidence: r.MinConfidence,
		IsComplete:    complete,
		Path:          r.Path,
	}
}
