package lineage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cix/internal/graph"
	"cix/internal/slogutil"
	"cix/internal/storage"
	"cix/internal/symbols"
)

func sym(path, qualified string, layer symbols.Layer) symbols.Symbol {
	name := qualified
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			name = qualified[i+1:]
			break
		}
	}
	return symbols.Symbol{
		ID:            symbols.ID(path, qualified),
		Name:          name,
		Type:          symbols.TypeStruct,
		QualifiedName: qualified,
		FilePath:      path,
		Domain:        symbols.DomainCode,
		Layer:         layer,
	}
}

func mapsTo(src, dst string, c symbols.Confidence) symbols.Edge {
	return symbols.Edge{SourceID: src, TargetID: dst, RefType: symbols.RefMapsTo, Confidence: &c}
}

func seed(t *testing.T, db *storage.DB, file string, syms []symbols.Symbol, edges []symbols.Edge) {
	t.Helper()
	ctx := context.Background()
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := storage.NewSymbolRepository(db).UpsertTx(ctx, tx, syms); err != nil {
			return err
		}
		_, err := storage.NewEdgeRepository(db).ReplaceFileTx(ctx, tx, file, edges)
		return err
	})
	require.NoError(t, err)
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenMemory(slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecomputeResolvesColumnToView(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	col := sym("db/schema.sql", "users.email", symbols.LayerDatabase)
	dto := sym("api/user.go", "UserDTO.Email", symbols.LayerBackend)
	form := sym("web/UserForm.tsx", "UserForm.email", symbols.LayerFrontend)
	seed(t, db, "api/user.go", []symbols.Symbol{col, dto, form}, []symbols.Edge{
		mapsTo(symbols.PlaceholderID("users.email"), dto.ID, symbols.ConfidenceHigh),
		mapsTo(dto.ID, symbols.PlaceholderID("UserForm.email"), symbols.ConfidenceMedium),
	})

	d := NewDeriver(db, slogutil.NewDiscardLogger())
	n, err := d.Recompute(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	recs, total, err := storage.NewLineageRepository(db).List(ctx, storage.LineageFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	rec := recs[0]
	assert.Equal(t, col.ID, rec.SourceID)
	assert.Equal(t, form.ID, rec.SinkID)
	assert.True(t, rec.IsComplete)
	assert.Equal(t, 2, rec.PathLength)
	assert.Equal(t, []string{col.ID, dto.ID, form.ID}, rec.Path)
	require.NotNil(t, rec.MinConfidence)
	assert.Equal(t, symbols.ConfidenceMedium, *rec.MinConfidence)
	assert.Equal(t, RecordID(col.ID, form.ID), rec.ID)

	// Recomputing yields the same ids.
	_, err = d.Recompute(ctx)
	require.NoError(t, err)
	again, _, err := storage.NewLineageRepository(db).List(ctx, storage.LineageFilter{})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again[0].ID)
}

func TestIncompletePathEndsAtFurthestNode(t *testing.T) {
	db := openDB(t)
	col := sym("db/schema.sql", "orders.total", symbols.LayerDatabase)
	svc := sym("svc/order.go", "Order.Total", symbols.LayerBackend)
	seed(t, db, "svc/order.go", []symbols.Symbol{col, svc}, []symbols.Edge{
		mapsTo(col.ID, svc.ID, symbols.ConfidenceHigh),
		mapsTo(svc.ID, symbols.PlaceholderID("NoSuchField"), symbols.ConfidenceLow),
	})

	recs, err := NewDeriver(db, slogutil.NewDiscardLogger()).Derive(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].IsComplete)
	assert.Equal(t, symbols.PlaceholderID("NoSuchField"), recs[0].SinkID)
	assert.Equal(t, symbols.ConfidenceLow, *recs[0].MinConfidence)
}

func TestAmbiguousPlaceholderStaysUnresolved(t *testing.T) {
	db := openDB(t)
	a := sym("a/model.go", "Email", symbols.LayerDatabase)
	b := sym("b/model.go", "Email", symbols.LayerDatabase)
	seed(t, db, "a/model.go", []symbols.Symbol{a, b}, nil)

	r := NewResolver(storage.NewSymbolRepository(db))
	got, err := r.Resolve(context.Background(), symbols.PlaceholderID("Email"))
	require.NoError(t, err)
	assert.Equal(t, symbols.PlaceholderID("Email"), got)

	got, err = r.Resolve(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got)
}

func TestBuildCycleAndMultipleSinks(t *testing.T) {
	layers := map[string]symbols.Layer{
		"col":   symbols.LayerDatabase,
		"dto":   symbols.LayerBackend,
		"view":  symbols.LayerView,
		"form":  symbols.LayerFrontend,
		"cycle": symbols.LayerBackend,
	}
	g := graph.NewGraph()
	g.AddEdge("col", "dto", nil)
	g.AddEdge("dto", "cycle", nil)
	g.AddEdge("cycle", "dto", nil)
	g.AddEdge("dto", "view", nil)
	g.AddEdge("dto", "form", nil)

	recs := Build(g, func(id string) symbols.Layer { return layers[id] })
	require.Len(t, recs, 2)
	assert.Equal(t, "form", recs[0].SinkID)
	assert.Equal(t, "view", recs[1].SinkID)
	for _, r := range recs {
		assert.Equal(t, "col", r.SourceID)
		assert.True(t, r.IsComplete)
		assert.Nil(t, r.MinConfidence)
	}
}

func TestDeriveEmpty(t *testing.T) {
	recs, err := NewDeriver(openDB(t), slogutil.NewDiscardLogger()).Derive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}
