package query

import (
	"context"
	"sort"
	"strconv"

	"cix/internal/errors"
	"cix/internal/lineage"
	"cix/internal/symbols"
)

// Traversal directions.
const (
	DirectionOut  = "out"
	DirectionIn   = "in"
	DirectionBoth = "both"
)

// TraverseOptions configures Traverse.
type TraverseOptions struct {
	Root string
	// Depth is the number of hops from Root; zero returns Root alone.
	Depth     int
	Direction string
	Refs      []string
	// MaxNodes caps the result; zero takes the configured cap.
	MaxNodes int
}

// Node is one symbol reached by a traversal. Symbol is nil for dangling
// targets that match no stored symbol.
type Node struct {
	ID     string          `json:"id"`
	Depth  int             `json:"depth"`
	Symbol *symbols.Symbol `json:"symbol,omitempty"`
}

// Subgraph is the part of the graph a traversal visited.
type Subgraph struct {
	Root  string         `json:"root"`
	Nodes []Node         `json:"nodes"`
	Edges []symbols.Edge `json:"edges"`
}

// GraphMeta describes a traversal answer.
type GraphMeta struct {
	Source       string
	NodeCount    int
	EdgeCount    int
	Depth        int
	DepthReached int
	Truncated    bool
	Direction    string
	Warnings     []string
}

// GraphResult is a traversal answer.
type GraphResult struct {
	Data *Subgraph
	Meta GraphMeta
}

// step is an edge leaving the frontier node from toward the node to.
type step struct {
	edge     symbols.Edge
	from, to string
}

type traversal struct {
	e          *Engine
	res        *lineage.Resolver
	refs       []symbols.RefType
	dir        string
	syms       map[string]*symbols.Symbol
	unresolved bool
}

// Traverse walks the graph breadth-first from Root. Every node is visited
// once, so cycles terminate and each edge is reported once. Placeholder
// targets are followed when exactly one symbol carries their name. The
// result is truncated when the depth boundary still has unvisited
// neighbours or the node cap was hit.
func (e *Engine) Traverse(ctx context.Context, opts TraverseOptions) (*GraphResult, error) {
	if opts.Depth < 0 || opts.Depth > e.cfg.MaxDepth {
		return nil, errors.NewValidationError("depth",
			"depth must be between 0 and "+strconv.Itoa(e.cfg.MaxDepth))
	}
	dir := opts.Direction
	if dir == "" {
		dir = DirectionOut
	}
	if dir != DirectionOut && dir != DirectionIn && dir != DirectionBoth {
		return nil, errors.NewValidationError("direction", "direction must be in, out or both")
	}
	refs, err := parseRefTypes(opts.Refs)
	if err != nil {
		return nil, err
	}
	maxNodes := opts.MaxNodes
	if maxNodes <= 0 || maxNodes > e.cfg.MaxNodes {
		maxNodes = e.cfg.MaxNodes
	}
	root, err := e.requireSymbol(ctx, opts.Root)
	if err != nil {
		return nil, err
	}

	t := &traversal{
		e:    e,
		res:  lineage.NewResolver(e.symbols),
		refs: refs,
		dir:  dir,
		syms: map[string]*symbols.Symbol{root.ID: root},
	}

	visited := map[string]int{root.ID: 0}
	order := []string{root.ID}
	seenEdge := make(map[string]bool)
	var edges []symbols.Edge
	frontier := []string{root.ID}
	reached := 0
	truncated := false

	for level := 0; len(frontier) > 0; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		steps, err := t.expand(ctx, frontier)
		if err != nil {
			return nil, err
		}
		if level == opts.Depth {
			for _, s := range steps {
				if _, ok := visited[s.to]; !ok {
					truncated = true
					break
				}
			}
			break
		}

		var next []string
		for _, s := range steps {
			if _, ok := visited[s.to]; !ok {
				if len(visited) >= maxNodes {
					truncated = true
					continue
				}
				visited[s.to] = level + 1
				next = append(next, s.to)
			}
			if key := s.edge.Key(); !seenEdge[key] {
				seenEdge[key] = true
				edges = append(edges, s.edge)
			}
		}
		if len(next) > 0 {
			reached = level + 1
		}
		sort.Strings(next)
		order = append(order, next...)
		if err := t.load(ctx, next); err != nil {
			return nil, err
		}
		frontier = next
	}

	nodes := make([]Node, len(order))
	for i, id := range order {
		nodes[i] = Node{ID: id, Depth: visited[id], Symbol: t.syms[id]}
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Key() < edges[j].Key() })
	if edges == nil {
		edges = []symbols.Edge{}
	}

	meta := GraphMeta{
		Source:       SourceGraph,
		NodeCount:    len(nodes),
		EdgeCount:    len(edges),
		Depth:        opts.Depth,
		DepthReached: reached,
		Truncated:    truncated,
		Direction:    dir,
	}
	if e.source == SourceLegacy {
		meta.Warnings = append(meta.Warnings, WarnLegacy)
	}
	if t.unresolved {
		meta.Warnings = append(meta.Warnings, WarnUnresolved)
	}
	return &GraphResult{Data: &Subgraph{Root: root.ID, Nodes: nodes, Edges: edges}, Meta: meta}, nil
}

// expand returns the edges touching frontier in the traversal direction,
// with placeholder endpoints resolved where possible.
func (t *traversal) expand(ctx context.Context, frontier []string) ([]step, error) {
	var steps []step
	if t.dir != DirectionIn {
		out, err := t.e.edges.From(ctx, frontier, t.refs)
		if err != nil {
			return nil, err
		}
		for _, se := range out {
			tgt, err := t.resolve(ctx, se.TargetID)
			if err != nil {
				return nil, err
			}
			edge := se.Edge
			edge.TargetID = tgt
			steps = append(steps, step{edge: edge, from: se.SourceID, to: tgt})
		}
	}
	if t.dir != DirectionOut {
		inFrontier := make(map[string]bool, len(frontier))
		targets := make([]string, 0, len(frontier)*2)
		for _, id := range frontier {
			inFrontier[id] = true
			targets = append(targets, id)
			if s := t.syms[id]; s != nil {
				targets = append(targets, symbols.PlaceholderID(s.Name))
				if s.QualifiedName != s.Name {
					targets = append(targets, symbols.PlaceholderID(s.QualifiedName))
				}
			}
		}
		in, err := t.e.edges.To(ctx, dedupStrings(targets), t.refs)
		if err != nil {
			return nil, err
		}
		for _, se := range in {
			tgt, err := t.resolve(ctx, se.TargetID)
			if err != nil {
				return nil, err
			}
			// A placeholder names this node only when resolution is unique.
			if !inFrontier[tgt] {
				continue
			}
			edge := se.Edge
			edge.TargetID = tgt
			steps = append(steps, step{edge: edge, from: tgt, to: se.SourceID})
		}
	}
	return steps, nil
}

func (t *traversal) resolve(ctx context.Context, id string) (string, error) {
	got, err := t.res.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	if symbols.IsPlaceholder(got) {
		t.unresolved = true
	}
	return got, nil
}

// load fetches the stored symbols behind newly visited ids.
func (t *traversal) load(ctx context.Context, ids []string) error {
	var want []string
	for _, id := range ids {
		if !symbols.IsPlaceholder(id) && !symbols.IsImport(id) {
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return nil
	}
	got, err := t.e.symbols.GetMany(ctx, want)
	if err != nil {
		return err
	}
	for id, s := range got {
		t.syms[id] = s
	}
	return nil
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
