package query

import (
	"context"
	"sort"
	"strings"

	"cix/internal/errors"
	"cix/internal/lineage"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// ImpactOptions configures Impact.
type ImpactOptions struct {
	// Target is a symbol id, or a column name such as users.email resolved
	// against Database layer symbols.
	Target string
}

// Affected is a symbol downstream of an impact target.
type Affected struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Type          symbols.SymbolType  `json:"type,omitempty"`
	FilePath      string              `json:"file_path,omitempty"`
	Layer         symbols.Layer       `json:"layer"`
	Distance      int                 `json:"distance"`
	MinConfidence *symbols.Confidence `json:"min_confidence"`
}

// FieldPath is the chain of fields from the target to an end point.
type FieldPath struct {
	SinkID        string              `json:"sink_id"`
	Fields        []string            `json:"fields"`
	Path          []string            `json:"path"`
	MinConfidence *symbols.Confidence `json:"min_confidence"`
	Complete      bool                `json:"complete"`
}

// Impact is the downstream reach of a storage column or symbol.
type Impact struct {
	Target     symbols.Symbol               `json:"target"`
	Total      int                          `json:"total"`
	ByLayer    map[symbols.Layer][]Affected `json:"by_layer"`
	FieldPaths []FieldPath                  `json:"field_paths"`
	Lineage    []symbols.LineageRecord      `json:"lineage"`
}

// Impact enumerates every symbol reachable from the target over mapping
// edges, grouped by layer, with the field path to each sink or end point.
func (e *Engine) Impact(ctx context.Context, opts ImpactOptions) (*Result[*Impact], error) {
	target, err := e.impactTarget(ctx, strings.TrimSpace(opts.Target))
	if err != nil {
		return nil, err
	}

	g, syms, err := lineage.NewDeriver(e.db, e.logger).MappingGraph(ctx)
	if err != nil {
		return nil, err
	}
	syms[target.ID] = target
	layerOf := func(id string) symbols.Layer {
		if s := syms[id]; s != nil {
			return s.Layer
		}
		return symbols.LayerUnknown
	}
	nameOf := func(id string) string {
		if s := syms[id]; s != nil {
			return s.QualifiedName
		}
		return symbols.TargetName(id)
	}

	imp := &Impact{
		Target:     *target,
		ByLayer:    make(map[symbols.Layer][]Affected),
		FieldPaths: []FieldPath{},
	}
	for _, r := range g.Walk(target.ID, nil) {
		a := Affected{
			ID:            r.ID,
			Name:          symbols.TargetName(r.ID),
			Layer:         layerOf(r.ID),
			Distance:      len(r.Path) - 1,
			MinConfidence: r.MinConfidence,
		}
		if s := syms[r.ID]; s != nil {
			a.Name, a.Type, a.FilePath = s.Name, s.Type, s.FilePath
		}
		imp.ByLayer[a.Layer] = append(imp.ByLayer[a.Layer], a)
		imp.Total++

		sink := lineage.IsSink(a.Layer)
		if sink || g.OutDegree(r.ID) == 0 {
			fields := make([]string, len(r.Path))
			for i, id := range r.Path {
				fields[i] = nameOf(id)
			}
			imp.FieldPaths = append(imp.FieldPaths, FieldPath{
				SinkID:        r.ID,
				Fields:        fields,
				Path:          r.Path,
				MinConfidence: r.MinConfidence,
				Complete:      sink,
			})
		}
	}
	for l := range imp.ByLayer {
		group := imp.ByLayer[l]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Distance != group[j].Distance {
				return group[i].Distance < group[j].Distance
			}
			return group[i].ID < group[j].ID
		})
	}
	sort.SliceStable(imp.FieldPaths, func(i, j int) bool { return imp.FieldPaths[i].SinkID < imp.FieldPaths[j].SinkID })

	recs, _, err := e.lineage.List(ctx, storage.LineageFilter{SymbolIDs: []string{target.ID}})
	if err != nil {
		return nil, err
	}
	imp.Lineage = []symbols.LineageRecord{}
	for _, rec := range recs {
		if rec.SourceID == target.ID {
			imp.Lineage = append(imp.Lineage, rec)
		}
	}

	return &Result[*Impact]{Data: imp, Meta: e.meta(imp.Total, 0, 0)}, nil
}

// impactTarget accepts an id or a name. Names prefer Database layer
// symbols; an ambiguous name is a validation error listing the candidates.
func (e *Engine) impactTarget(ctx context.Context, target string) (*symbols.Symbol, error) {
	if target == "" {
		return nil, errors.NewValidationError("target", "impact target is required")
	}
	if strings.Contains(target, "::") {
		return e.requireSymbol(ctx, target)
	}

	matches, err := e.symbols.Resolve(ctx, target, e.cfg.MaxLimit)
	if err != nil {
		return nil, err
	}
	var db []symbols.Symbol
	for _, s := range matches {
		if s.Layer == symbols.LayerDatabase {
			db = append(db, s)
		}
	}
	if len(db) > 0 {
		matches = db
	}
	switch len(matches) {
	case 0:
		return nil, errors.NewNotFoundError("symbol", target)
	case 1:
		return &matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, s := range matches {
		ids[i] = s.ID
	}
	return nil, errors.NewValidationError("target", "ambiguous target "+target+", pass a symbol id").
		WithDetails(map[string]any{"candidates": ids})
}
