package symbols

import (
	"context"
	"testing"

	"cix/internal/errors"
	"cix/internal/grammar"
	"cix/internal/parser"
	"cix/internal/slogutil"
)

const cartSource = `<?php
// Cart stores items.
// @maps-to CartView.total
class Cart {
  function add($item) {
    validate($item);
    $this->total();
  }
  function total() {
    return 0;
  }
}
function validate($x) {
  format($x);
  return true;
}
`

func newTestExtractor() *Extractor {
	logger := slogutil.NewDiscardLogger()
	return NewExtractor(parser.NewAdapter(grammar.NewRegistry(), logger), NewClassifier(nil), logger)
}

func symbolByID(t *testing.T, fx *FileExtraction, id string) Symbol {
	t.Helper()
	for _, s := range fx.Symbols {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("symbol %q not found in %d symbols", id, len(fx.Symbols))
	return Symbol{}
}

func findEdge(fx *FileExtraction, source, target string, ref RefType) *Edge {
	for i := range fx.Edges {
		e := &fx.Edges[i]
		if e.SourceID == source && e.TargetID == target && e.RefType == ref {
			return e
		}
	}
	return nil
}

func TestExtractFileGeneric(t *testing.T) {
	fx, err := newTestExtractor().ExtractFile(context.Background(), "api/cart.php", []byte(cartSource))
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if len(fx.Symbols) != 5 {
		for _, s := range fx.Symbols {
			t.Logf("  %s %s", s.Type, s.ID)
		}
		t.Fatalf("expected 5 symbols, got %d", len(fx.Symbols))
	}

	file := symbolByID(t, fx, "api/cart.php::api/cart.php")
	if file.Type != TypeFile || file.Content != nil || *file.LineEnd != 16 {
		t.Errorf("file symbol = %+v", file)
	}

	cart := symbolByID(t, fx, "api/cart.php::Cart")
	if cart.Type != TypeClass || cart.Layer != LayerBackend || cart.Category != "api" {
		t.Errorf("Cart = %s %s %s", cart.Type, cart.Layer, cart.Category)
	}
	if cart.Content == nil || *cart.Content != "Cart stores items.\n@maps-to CartView.total" {
		t.Errorf("Cart content = %v", cart.Content)
	}
	if *cart.LineStart != 4 || *cart.LineEnd != 12 {
		t.Errorf("Cart span = %d-%d", *cart.LineStart, *cart.LineEnd)
	}

	add := symbolByID(t, fx, "api/cart.php::Cart.add")
	if add.Type != TypeMethod || add.QualifiedName != "Cart.add" || add.Sources[0] != parser.EngineFallback {
		t.Errorf("Cart.add = %+v", add)
	}
	symbolByID(t, fx, "api/cart.php::Cart.total")
	validate := symbolByID(t, fx, "api/cart.php::validate")
	if validate.Type != TypeFunction {
		t.Errorf("validate type = %s", validate.Type)
	}

	if e := findEdge(fx, add.ID, validate.ID, RefCalls); e == nil || *e.Confidence != ConfidenceHigh || e.Line != 6 {
		t.Errorf("add -> validate edge = %+v", e)
	}
	if e := findEdge(fx, add.ID, "api/cart.php::Cart.total", RefCalls); e == nil {
		t.Error("add -> total edge missing")
	}
	if e := findEdge(fx, validate.ID, PlaceholderID("format"), RefCalls); e == nil || *e.Confidence != ConfidenceLow {
		t.Errorf("unresolved call edge = %+v", e)
	}
	if e := findEdge(fx, cart.ID, PlaceholderID("CartView.total"), RefMapsTo); e == nil || *e.Confidence != ConfidenceHigh {
		t.Errorf("maps-to edge = %+v", e)
	}
}

func TestExtractFileIsDeterministic(t *testing.T) {
	e := newTestExtractor()
	a, err := e.ExtractFile(context.Background(), "api/cart.php", []byte(cartSource))
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.ExtractFile(context.Background(), "api/cart.php", []byte(cartSource))
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Symbols) != len(b.Symbols) || len(a.Edges) != len(b.Edges) {
		t.Fatalf("re-extraction differs: %d/%d symbols, %d/%d edges", len(a.Symbols), len(b.Symbols), len(a.Edges), len(b.Edges))
	}
	for i := range a.Symbols {
		if a.Symbols[i].ID != b.Symbols[i].ID {
			t.Errorf("symbol %d id %q != %q", i, a.Symbols[i].ID, b.Symbols[i].ID)
		}
	}
}

func TestExtractDuplicateNamesGetPositionalIDs(t *testing.T) {
	src := "function helper() {\n}\nfunction helper() {\n}\n"
	fx, err := newTestExtractor().ExtractFile(context.Background(), "lib/dup.php", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	symbolByID(t, fx, "lib/dup.php::helper")
	second := symbolByID(t, fx, "lib/dup.php::helper::3:10")
	if *second.LineStart != 3 {
		t.Errorf("second helper line = %d", *second.LineStart)
	}
}

func TestExtractBinaryKeepsFileSymbol(t *testing.T) {
	fx, err := newTestExtractor().ExtractFile(context.Background(), "lib/blob.c", []byte{0x01, 0x00, 0x02})
	if !errors.Is(err, errors.ParseError) {
		t.Fatalf("err = %v, want PARSE_ERROR", err)
	}
	if fx == nil || len(fx.Symbols) != 1 || fx.Symbols[0].Type != TypeFile {
		t.Fatalf("extraction = %+v", fx)
	}
	if fx.Symbols[0].Content != nil {
		t.Error("file symbol content should be empty")
	}
}

func TestExtractSQLColumns(t *testing.T) {
	src := "CREATE TABLE invoices (\n  id SERIAL PRIMARY KEY,\n  -- total in cents\n  -- @maps-to InvoiceView.amount\n  amount INT NOT NULL\n);\n"
	fx, err := newTestExtractor().ExtractFile(context.Background(), "db/schema.sql", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	table := symbolByID(t, fx, "db/schema.sql::invoices")
	if table.Type != TypeStruct || table.Metadata["kind"] != grammar.KindTable || table.Layer != LayerDatabase {
		t.Errorf("table = %+v", table)
	}
	col := symbolByID(t, fx, "db/schema.sql::invoices.amount")
	if col.Type != TypeUnknown || col.Metadata["kind"] != grammar.KindColumn {
		t.Errorf("column = %+v", col)
	}
	if e := findEdge(fx, col.ID, PlaceholderID("InvoiceView.amount"), RefMapsTo); e == nil {
		t.Error("column maps-to edge missing")
	}
}
