package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cix/internal/config"
	"cix/internal/errors"
	"cix/internal/lineage"
	"cix/internal/paths"
	"cix/internal/project"
	"cix/internal/slogutil"
	"cix/internal/storage"
	"cix/internal/symbols"
)

type fixture struct {
	db     *storage.DB
	cfg    *config.Config
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.OpenMemory(slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cfg := config.DefaultConfig()
	return &fixture{db: db, cfg: cfg, engine: NewEngine(db, cfg, slogutil.NewDiscardLogger())}
}

func sym(path, qualified string, typ symbols.SymbolType, layer symbols.Layer) symbols.Symbol {
	name := qualified
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		name = qualified[i+1:]
	}
	return symbols.Symbol{
		ID:            symbols.ID(path, qualified),
		Name:          name,
		Type:          typ,
		QualifiedName: qualified,
		FilePath:      path,
		LineStart:     symbols.Ptr(1),
		LineEnd:       symbols.Ptr(4),
		Domain:        symbols.DomainCode,
		Layer:         layer,
		Category:      "shop",
		Content:       symbols.Ptr("def " + name),
		Language:      "python",
		Sources:       []string{symbols.SourceTreeSitter},
	}
}

func fn(path, name string) symbols.Symbol {
	return sym(path, name, symbols.TypeFunction, symbols.LayerBackend)
}

func call(src, dst string) symbols.Edge {
	return symbols.Edge{SourceID: src, TargetID: dst, RefType: symbols.RefCalls, Confidence: symbols.Ptr(symbols.ConfidenceHigh)}
}

func mapsTo(src, dst string) symbols.Edge {
	return symbols.Edge{SourceID: src, TargetID: dst, RefType: symbols.RefMapsTo, Confidence: symbols.Ptr(symbols.ConfidenceMedium)}
}

// add stores symbols and edges; edges are owned by their source's file.
func (f *fixture) add(t *testing.T, syms []symbols.Symbol, edges ...symbols.Edge) {
	t.Helper()
	ctx := context.Background()
	err := f.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := storage.NewSymbolRepository(f.db).UpsertTx(ctx, tx, syms); err != nil {
			return err
		}
		byOwner := make(map[string][]symbols.Edge)
		for _, e := range edges {
			owner, _ := symbols.SplitID(e.SourceID)
			byOwner[owner] = append(byOwner[owner], e)
		}
		for owner, es := range byOwner {
			if _, err := storage.NewEdgeRepository(f.db).InsertTx(ctx, tx, owner, es); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) recomputeLineage(t *testing.T) {
	t.Helper()
	_, err := lineage.NewDeriver(f.db, slogutil.NewDiscardLogger()).Recompute(context.Background())
	require.NoError(t, err)
}

func assertCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, errors.CodeOf(err), "error: %v", err)
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func TestSearchExactMatchRanksFirst(t *testing.T) {
	f := newFixture(t)
	f.add(t, []symbols.Symbol{
		fn("shop/cart.py", "checkout_cart"),
		fn("shop/pay.py", "checkout"),
		sym("shop/order.py", "Order.checkout", symbols.TypeMethod, symbols.LayerBackend),
		fn("shop/util.py", "checkout_total"),
	})

	// Four name hits fill the limit, so the full-text tier is skipped.
	res, err := f.engine.Search(context.Background(), SearchOptions{Query: "checkout", Limit: 4})
	require.NoError(t, err)
	require.Len(t, res.Data, 4)

	first := res.Data[0]
	assert.Equal(t, MatchExact, first.MatchType)
	assert.Equal(t, 100.0, first.Score)
	assert.Equal(t, "checkout", first.Name)

	byID := make(map[string]SearchHit)
	for _, h := range res.Data {
		byID[h.ID] = h
	}
	assert.Equal(t, MatchPrefix, byID[symbols.ID("shop/cart.py", "checkout_cart")].MatchType)
	assert.Equal(t, 75.0, byID[symbols.ID("shop/cart.py", "checkout_cart")].Score)
	// Order.checkout has name "checkout" so it is an exact match too.
	assert.Equal(t, MatchExact, byID[symbols.ID("shop/order.py", "Order.checkout")].MatchType)
	assert.Equal(t, SourceIndex, res.Meta.Source)
	assert.Equal(t, 4, res.Meta.Limit)
}

func TestSearchFallsBackToFullText(t *testing.T) {
	f := newFixture(t)
	credit := fn("shop/credit.py", "issue_credit")
	credit.Content = symbols.Ptr("sends a refund to the original card")
	f.add(t, []symbols.Symbol{credit, fn("shop/pay.py", "charge")})

	res, err := f.engine.Search(context.Background(), SearchOptions{Query: "refund"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, credit.ID, res.Data[0].ID)
	assert.Equal(t, MatchFTS, res.Data[0].MatchType)
	assert.Equal(t, f.cfg.Query.Scores.FTSMax, res.Data[0].Score)
}

func TestSearchSkipsFullTextWhenTiersFillLimit(t *testing.T) {
	f := newFixture(t)
	other := fn("shop/z.py", "unrelated")
	other.Content = symbols.Ptr("mentions cart in passing")
	f.add(t, []symbols.Symbol{fn("shop/a.py", "cart"), fn("shop/b.py", "cart_total"), other})

	res, err := f.engine.Search(context.Background(), SearchOptions{Query: "cart", Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	for _, h := range res.Data {
		assert.NotEqual(t, MatchFTS, h.MatchType)
	}
}

func TestSearchNeverRepeatsAnID(t *testing.T) {
	f := newFixture(t)
	// Matches the exact, prefix, qualified and full-text tiers at once.
	s := sym("shop/cart.py", "Cart.cart", symbols.TypeMethod, symbols.LayerBackend)
	s.Content = symbols.Ptr("cart cart cart")
	f.add(t, []symbols.Symbol{s, fn("shop/cart2.py", "cartography"), sym("shop/x.py", "cart_x", symbols.TypeClass, symbols.LayerFrontend)})

	res, err := f.engine.Search(context.Background(), SearchOptions{Query: "cart", Limit: 50})
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, h := range res.Data {
		assert.False(t, seen[h.ID], "duplicate id %s", h.ID)
		seen[h.ID] = true
	}
	assert.Equal(t, MatchExact, res.Data[0].MatchType)
	assert.Equal(t, s.ID, res.Data[0].ID)
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	f.add(t, []symbols.Symbol{
		fn("shop/a.py", "render"),
		sym("web/a.tsx", "render", symbols.TypeFunction, symbols.LayerFrontend),
	})
	res, err := f.engine.Search(context.Background(), SearchOptions{Query: "render", Layer: "frontend"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, symbols.LayerFrontend, res.Data[0].Layer)

	_, err = f.engine.Search(context.Background(), SearchOptions{Query: "render", Type: "Widget"})
	assertCode(t, err, errors.ValidationError)
	_, err = f.engine.Search(context.Background(), SearchOptions{Query: "  "})
	assertCode(t, err, errors.ValidationError)
}

func TestDedupByIDKeepsBestScoreAndMergesProvenance(t *testing.T) {
	a := fn("a.py", "a")
	a.Sources = []string{symbols.SourceTreeSitter}
	aSCIP := a
	aSCIP.Sources = []string{symbols.SourceSCIP}
	b := fn("b.py", "b")

	got := dedupByID([]SearchHit{
		{Symbol: a, Score: 60, MatchType: MatchQualified},
		{Symbol: b, Score: 75, MatchType: MatchPrefix},
		{Symbol: aSCIP, Score: 90, MatchType: MatchFTS},
		{Symbol: a, Score: 50, MatchType: MatchFTS},
	})
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, 90.0, got[0].Score)
	assert.Equal(t, MatchFTS, got[0].MatchType)
	assert.ElementsMatch(t, []string{symbols.SourceTreeSitter, symbols.SourceSCIP}, got[0].Sources)
	assert.Equal(t, []string{symbols.SourceTreeSitter}, a.Sources, "input must not be mutated")
}

func TestTraverseCycleTerminates(t *testing.T) {
	f := newFixture(t)
	a, b := fn("shop/a.py", "a"), fn("shop/b.py", "b")
	f.add(t, []symbols.Symbol{a, b}, call(a.ID, b.ID), call(b.ID, a.ID))

	res, err := f.engine.Traverse(context.Background(), TraverseOptions{Root: a.ID, Depth: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(res.Data.Nodes, func(n Node) string { return n.ID }))
	assert.Len(t, res.Data.Edges, 2)
	assert.Equal(t, SourceGraph, res.Meta.Source)
	assert.Equal(t, 2, res.Meta.NodeCount)
	assert.Equal(t, 2, res.Meta.EdgeCount)
	assert.Equal(t, 5, res.Meta.Depth)
	assert.Equal(t, 1, res.Meta.DepthReached)
	assert.False(t, res.Meta.Truncated)
	assert.Equal(t, DirectionOut, res.Meta.Direction)
}

func TestTraverseRespectsDepth(t *testing.T) {
	f := newFixture(t)
	var syms []symbols.Symbol
	var edges []symbols.Edge
	for i := 0; i < 6; i++ {
		syms = append(syms, fn("chain.py", "n"+string(rune('0'+i))))
		if i > 0 {
			edges = append(edges, call(syms[i-1].ID, syms[i].ID))
		}
	}
	f.add(t, syms, edges...)

	res, err := f.engine.Traverse(context.Background(), TraverseOptions{Root: syms[0].ID, Depth: 2})
	require.NoError(t, err)
	require.Len(t, res.Data.Nodes, 3)
	for _, n := range res.Data.Nodes {
		assert.LessOrEqual(t, n.Depth, 2)
		assert.NotNil(t, n.Symbol)
	}
	assert.Equal(t, 2, res.Meta.DepthReached)
	assert.True(t, res.Meta.Truncated)

	res, err = f.engine.Traverse(context.Background(), TraverseOptions{Root: syms[3].ID, Depth: 0})
	require.NoError(t, err)
	assert.Len(t, res.Data.Nodes, 1)
	assert.Empty(t, res.Data.Edges)
	assert.True(t, res.Meta.Truncated)

	res, err = f.engine.Traverse(context.Background(), TraverseOptions{Root: syms[5].ID, Depth: 3, Direction: DirectionIn})
	require.NoError(t, err)
	assert.Equal(t, []string{syms[5].ID, syms[4].ID, syms[3].ID, syms[2].ID},
		ids(res.Data.Nodes, func(n Node) string { return n.ID }))
	assert.True(t, res.Meta.Truncated)

	res, err = f.engine.Traverse(context.Background(), TraverseOptions{Root: syms[3].ID, Depth: 1, Direction: DirectionBoth})
	require.NoError(t, err)
	assert.Len(t, res.Data.Nodes, 3)
	assert.Len(t, res.Data.Edges, 2)
}

func TestTraverseNodeCap(t *testing.T) {
	f := newFixture(t)
	root := fn("hub.py", "hub")
	syms := []symbols.Symbol{root}
	var edges []symbols.Edge
	for i := 0; i < 10; i++ {
		leaf := fn("leaf.py", "leaf"+string(rune('a'+i)))
		syms = append(syms, leaf)
		edges = append(edges, call(root.ID, leaf.ID))
	}
	f.add(t, syms, edges...)

	res, err := f.engine.Traverse(context.Background(), TraverseOptions{Root: root.ID, Depth: 3, MaxNodes: 4})
	require.NoError(t, err)
	assert.Len(t, res.Data.Nodes, 4)
	assert.Len(t, res.Data.Edges, 3, "edges to dropped nodes are not reported")
	assert.True(t, res.Meta.Truncated)
}

func TestTraverseResolvesPlaceholders(t *testing.T) {
	f := newFixture(t)
	caller, helper := fn("app.py", "main"), fn("lib/util.py", "helper")
	runA, runB := fn("a.py", "run"), fn("b.py", "run")
	f.add(t, []symbols.Symbol{caller, helper, runA, runB},
		call(caller.ID, symbols.PlaceholderID("helper")),
		call(caller.ID, symbols.PlaceholderID("run")),
	)

	res, err := f.engine.Traverse(context.Background(), TraverseOptions{Root: caller.ID, Depth: 1})
	require.NoError(t, err)
	got := ids(res.Data.Nodes, func(n Node) string { return n.ID })
	assert.Contains(t, got, helper.ID)
	assert.Contains(t, got, symbols.PlaceholderID("run"), "ambiguous names stay unresolved")
	assert.Contains(t, res.Meta.Warnings, WarnUnresolved)
	for _, n := range res.Data.Nodes {
		if n.ID == symbols.PlaceholderID("run") {
			assert.Nil(t, n.Symbol)
		}
	}

	res, err = f.engine.Traverse(context.Background(), TraverseOptions{Root: helper.ID, Depth: 1, Direction: DirectionIn})
	require.NoError(t, err)
	assert.Equal(t, []string{helper.ID, caller.ID}, ids(res.Data.Nodes, func(n Node) string { return n.ID }))

	res, err = f.engine.Traverse(context.Background(), TraverseOptions{Root: runA.ID, Depth: 1, Direction: DirectionIn})
	require.NoError(t, err)
	assert.Len(t, res.Data.Nodes, 1, "an ambiguous placeholder is not an in-edge of either candidate")
}

func TestTraverseValidation(t *testing.T) {
	f := newFixture(t)
	a := fn("a.py", "a")
	f.add(t, []symbols.Symbol{a})
	ctx := context.Background()

	_, err := f.engine.Traverse(ctx, TraverseOptions{Root: a.ID, Depth: f.cfg.Query.MaxDepth + 1})
	assertCode(t, err, errors.ValidationError)
	_, err = f.engine.Traverse(ctx, TraverseOptions{Root: a.ID, Depth: -1})
	assertCode(t, err, errors.ValidationError)
	_, err = f.engine.Traverse(ctx, TraverseOptions{Root: a.ID, Direction: "sideways"})
	assertCode(t, err, errors.ValidationError)
	_, err = f.engine.Traverse(ctx, TraverseOptions{Root: a.ID, Refs: []string{"Owns"}})
	assertCode(t, err, errors.ValidationError)
	_, err = f.engine.Traverse(ctx, TraverseOptions{Root: "missing.py::nope"})
	assertCode(t, err, errors.NotFound)
}

func TestTraverseRefFilter(t *testing.T) {
	f := newFixture(t)
	a, b, c := fn("a.py", "a"), fn("b.py", "b"), fn("c.py", "c")
	imp := symbols.Edge{SourceID: a.ID, TargetID: c.ID, RefType: symbols.RefReferences}
	f.add(t, []symbols.Symbol{a, b, c}, call(a.ID, b.ID), imp)

	res, err := f.engine.Traverse(context.Background(), TraverseOptions{Root: a.ID, Depth: 1, Refs: []string{"calls"}})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(res.Data.Nodes, func(n Node) string { return n.ID }))
}

// seedMapping stores users.email -> UserDTO.email -> UserForm.email and a
// second, unrelated column.
func seedMapping(t *testing.T, f *fixture) (col, dto, form symbols.Symbol) {
	t.Helper()
	col = sym("db/schema.sql", "users.email", symbols.TypeUnknown, symbols.LayerDatabase)
	dto = sym("api/user.py", "UserDTO.email", symbols.TypeUnknown, symbols.LayerBackend)
	form = sym("web/form.html", "UserForm.email", symbols.TypeUnknown, symbols.LayerView)
	other := sym("db/schema.sql", "orders.total", symbols.TypeUnknown, symbols.LayerDatabase)
	f.add(t, []symbols.Symbol{col, dto, form, other},
		mapsTo(col.ID, dto.ID),
		mapsTo(dto.ID, symbols.PlaceholderID("UserForm.email")),
	)
	f.recomputeLineage(t)
	return col, dto, form
}

func TestImpactFollowsMappings(t *testing.T) {
	f := newFixture(t)
	col, dto, form := seedMapping(t, f)

	res, err := f.engine.Impact(context.Background(), ImpactOptions{Target: "users.email"})
	require.NoError(t, err)
	imp := res.Data
	assert.Equal(t, col.ID, imp.Target.ID)
	assert.Equal(t, 2, imp.Total)
	require.Len(t, imp.ByLayer[symbols.LayerBackend], 1)
	assert.Equal(t, dto.ID, imp.ByLayer[symbols.LayerBackend][0].ID)
	assert.Equal(t, 1, imp.ByLayer[symbols.LayerBackend][0].Distance)
	require.Len(t, imp.ByLayer[symbols.LayerView], 1)
	assert.Equal(t, form.ID, imp.ByLayer[symbols.LayerView][0].ID)
	assert.Equal(t, 2, imp.ByLayer[symbols.LayerView][0].Distance)

	require.Len(t, imp.FieldPaths, 1)
	fp := imp.FieldPaths[0]
	assert.Equal(t, []string{"users.email", "UserDTO.email", "UserForm.email"}, fp.Fields)
	assert.True(t, fp.Complete)
	require.NotNil(t, fp.MinConfidence)
	assert.Equal(t, symbols.ConfidenceMedium, *fp.MinConfidence)

	require.Len(t, imp.Lineage, 1)
	assert.Equal(t, form.ID, imp.Lineage[0].SinkID)

	byID, err := f.engine.Impact(context.Background(), ImpactOptions{Target: col.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, byID.Data.Total)
}

func TestImpactTargetResolution(t *testing.T) {
	f := newFixture(t)
	seedMapping(t, f)
	f.add(t, []symbols.Symbol{sym("db/schema.sql", "accounts.email", symbols.TypeUnknown, symbols.LayerDatabase)})
	ctx := context.Background()

	// Three symbols are named email; two are columns.
	_, err := f.engine.Impact(ctx, ImpactOptions{Target: "email"})
	assertCode(t, err, errors.ValidationError)
	ce := errors.As(err)
	require.NotNil(t, ce)
	assert.Len(t, ce.Details.(map[string]any)["candidates"], 2)

	_, err = f.engine.Impact(ctx, ImpactOptions{Target: "nothing.here"})
	assertCode(t, err, errors.NotFound)
	_, err = f.engine.Impact(ctx, ImpactOptions{Target: ""})
	assertCode(t, err, errors.ValidationError)

	res, err := f.engine.Impact(ctx, ImpactOptions{Target: "orders.total"})
	require.NoError(t, err)
	assert.Zero(t, res.Data.Total)
	assert.Empty(t, res.Data.FieldPaths)
}

func TestLineageListAndSearch(t *testing.T) {
	f := newFixture(t)
	col, _, form := seedMapping(t, f)
	ctx := context.Background()

	res, err := f.engine.LineageList(ctx, LineageOptions{})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, 1, res.Meta.Total)
	assert.Equal(t, col.ID, res.Data[0].SourceID)
	assert.Equal(t, "users.email", res.Data[0].SourceName)
	assert.Equal(t, "UserForm.email", res.Data[0].SinkName)
	assert.Equal(t, form.ID, res.Data[0].SinkID)
	assert.True(t, res.Data[0].IsComplete)

	res, err = f.engine.LineageList(ctx, LineageOptions{Complete: symbols.Ptr(false)})
	require.NoError(t, err)
	assert.Empty(t, res.Data)

	res, err = f.engine.LineageSearch(ctx, LineageOptions{Query: "UserForm"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)

	res, err = f.engine.LineageSearch(ctx, LineageOptions{Query: "orders"})
	require.NoError(t, err)
	assert.Empty(t, res.Data)

	_, err = f.engine.LineageSearch(ctx, LineageOptions{})
	assertCode(t, err, errors.ValidationError)
}

func TestHotspots(t *testing.T) {
	f := newFixture(t)
	hub, a, b := fn("hub.py", "hub"), fn("a.py", "a"), fn("b.py", "b")
	view := sym("web/v.tsx", "View", symbols.TypeClass, symbols.LayerFrontend)
	f.add(t, []symbols.Symbol{hub, a, b, view},
		call(a.ID, hub.ID), call(b.ID, symbols.PlaceholderID("hub")), call(hub.ID, a.ID), call(view.ID, hub.ID))

	res, err := f.engine.Hotspots(context.Background(), HotspotOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, hub.ID, res.Data[0].ID)
	assert.Equal(t, 3, res.Data[0].InCount)
	assert.Equal(t, 1, res.Data[0].OutCount)
	assert.Equal(t, 4, res.Data[0].Degree)

	res, err = f.engine.Hotspots(context.Background(), HotspotOptions{Layer: "Frontend"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, view.ID, res.Data[0].ID)

	_, err = f.engine.Hotspots(context.Background(), HotspotOptions{Layer: "Middle"})
	assertCode(t, err, errors.ValidationError)
}

func TestListGetContentCategories(t *testing.T) {
	f := newFixture(t)
	a, b := fn("shop/a.py", "a"), sym("web/b.tsx", "B", symbols.TypeClass, symbols.LayerFrontend)
	b.Category = "ui"
	file := sym("shop/a.py", "shop/a.py", symbols.TypeFile, symbols.LayerBackend)
	f.add(t, []symbols.Symbol{a, b, file}, call(b.ID, a.ID))
	ctx := context.Background()

	list, err := f.engine.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Meta.Total, "file symbols are hidden by default")

	list, err = f.engine.List(ctx, ListOptions{Layer: "frontend", Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, b.ID, list.Data[0].ID)

	list, err = f.engine.List(ctx, ListOptions{Type: "File"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Meta.Total)

	_, err = f.engine.List(ctx, ListOptions{Limit: f.cfg.Query.MaxLimit + 1})
	assertCode(t, err, errors.ValidationError)
	_, err = f.engine.List(ctx, ListOptions{Offset: -1})
	assertCode(t, err, errors.ValidationError)
	_, err = f.engine.List(ctx, ListOptions{Domain: "Prose"})
	assertCode(t, err, errors.ValidationError)

	got, err := f.engine.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Data.InCount)
	assert.Equal(t, 0, got.Data.OutCount)
	_, err = f.engine.Get(ctx, "shop/a.py::missing")
	assertCode(t, err, errors.NotFound)

	c, err := f.engine.Content(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "def a", c.Data.Content)
	assert.Equal(t, "shop/a.py", c.Data.FilePath)
	assert.Equal(t, 1, *c.Data.LineStart)
	_, err = f.engine.Content(ctx, "nope::nope")
	assertCode(t, err, errors.NotFound)

	cats, err := f.engine.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats.Data, 2)
	assert.Equal(t, 1, cats.Data[0].Count)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	col, _, _ := seedMapping(t, f)
	doc := sym("docs/readme.md", "Readme", symbols.TypeDocPage, symbols.LayerUnknown)
	doc.Domain = symbols.DomainDoc
	f.add(t, []symbols.Symbol{doc, sym("db/schema.sql", "db/schema.sql", symbols.TypeFile, symbols.LayerDatabase)},
		symbols.Edge{SourceID: doc.ID, TargetID: col.ID, RefType: symbols.RefReferences})

	res, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	st := res.Data
	assert.Equal(t, 5, st.TotalSymbols)
	assert.Equal(t, 4, st.CodeSymbols)
	assert.Equal(t, 1, st.DocSymbols)
	assert.Equal(t, 1, st.FileSymbols)
	assert.Equal(t, 3, st.Edges)
	assert.Equal(t, 2, st.EdgesByRef[symbols.RefMapsTo])
	assert.Equal(t, 1, st.Lineage)
	assert.Nil(t, st.LastRun)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := slogutil.NewDiscardLogger()

	t.Run("missing index", func(t *testing.T) {
		_, err := Open(ctx, t.TempDir(), config.DefaultConfig(), logger)
		assertCode(t, err, errors.StoreUnavailable)
	})

	t.Run("index", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/shop\n"), 0644))
		db, err := storage.OpenRepo(root, logger)
		require.NoError(t, err)
		require.NoError(t, db.Close())
		require.FileExists(t, paths.DBPath(root))

		e, err := Open(ctx, root, config.DefaultConfig(), logger)
		require.NoError(t, err)
		defer e.Close()
		assert.Equal(t, SourceIndex, e.Source())

		st, err := e.Stats(ctx)
		require.NoError(t, err)
		require.NotNil(t, st.Data.Project)
		assert.Equal(t, "example.com/shop", st.Data.Project.Name)
		assert.Equal(t, project.LangGo, st.Data.Project.Language)
	})

	t.Run("legacy", func(t *testing.T) {
		root := t.TempDir()
		dir := filepath.Join(root, ".cix", "legacy")
		require.NoError(t, os.MkdirAll(dir, 0755))
		data, err := json.Marshal(fn("old.py", "legacy_fn"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "symbols.jsonl"), append(data, '\n'), 0644))

		cfg := config.DefaultConfig()
		cfg.Query.UseLegacy = true
		e, err := Open(ctx, root, cfg, logger)
		require.NoError(t, err)
		defer e.Close()

		res, err := e.Search(ctx, SearchOptions{Query: "legacy_fn"})
		require.NoError(t, err)
		require.Len(t, res.Data, 1)
		assert.Equal(t, SourceLegacy, res.Meta.Source)
		assert.Contains(t, res.Meta.Warnings, WarnLegacy)
	})

	t.Run("legacy missing", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Query.UseLegacy = true
		_, err := Open(ctx, t.TempDir(), cfg, logger)
		assertCode(t, err, errors.StoreUnavailable)
	})
}
