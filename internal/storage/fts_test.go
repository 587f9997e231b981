package storage

import (
	"context"
	"database/sql"
	"testing"

	"cix/internal/symbols"
)

func TestFTSSearch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	refund := testSymbol("pay/refund.go", "IssueRefund", symbols.TypeFunction, symbols.LayerBackend, 1)
	refund.Content = symbols.Ptr("IssueRefund sends a refund to the customer card")
	doc := testSymbol("docs/billing.md", "Billing > Refunds", symbols.TypeDocSection, symbols.LayerUnknown, 4)
	doc.Name = "Refunds"
	doc.Content = symbols.Ptr("Refunds are issued within five days.")
	other := testSymbol("pay/charge.go", "Charge", symbols.TypeFunction, symbols.LayerBackend, 1)
	other.Content = symbols.Ptr("Charge bills the card")
	writeFile(t, db, "pay/refund.go", []symbols.Symbol{refund, doc, other}, nil)

	hits, err := db.FTSSearch(ctx, "refund", 10)
	if err != nil {
		t.Fatalf("FTSSearch: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2: %+v", len(hits), hits)
	}
	for _, h := range hits {
		if h.ID == other.ID {
			t.Errorf("unrelated symbol matched")
		}
		if h.Relevance <= 0 {
			t.Errorf("relevance %f should be positive", h.Relevance)
		}
	}

	// Updates flow through the triggers.
	other.Content = symbols.Ptr("Charge may trigger a refund on failure")
	writeFile(t, db, "pay/refund.go", []symbols.Symbol{other}, nil)
	hits, err = db.FTSSearch(ctx, "refund", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("after update got %d hits, want 3", len(hits))
	}

	// So do deletes.
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := NewSymbolRepository(db).DeleteTx(ctx, tx, []string{refund.ID})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	hits, err = db.FTSSearch(ctx, "IssueRefund", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("deleted symbol still searchable: %+v", hits)
	}

	if err := db.RebuildFTS(ctx); err != nil {
		t.Errorf("RebuildFTS: %v", err)
	}
	if err := db.FTSIntegrityCheck(ctx); err != nil {
		t.Errorf("FTSIntegrityCheck: %v", err)
	}
}

func TestFTSSearchIgnoresOperators(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	hits, err := db.FTSSearch(ctx, `"(*)" -- NOT`, 5)
	if err != nil {
		t.Fatalf("operator characters must not reach FTS5: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits on empty store: %v", hits)
	}

	hits, err = db.FTSSearch(ctx, "  ", 5)
	if err != nil || hits != nil {
		t.Errorf("blank query = %v, %v", hits, err)
	}
}

func TestBuildFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"refund", `"refund"*`},
		{"user.email", `"user"* OR "email"*`},
		{"get_user()", `"get_user"*`},
		{"***", ""},
		{"NOT AND", `"NOT"* OR "AND"*`},
	}
	for _, tt := range tests {
		if got := buildFTSQuery(tt.in); got != tt.want {
			t.Errorf("buildFTSQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeFTS5Query(t *testing.T) {
	if got := escapeFTS5Query(`say "hi"`); got != `say ""hi""` {
		t.Errorf("escapeFTS5Query = %q", got)
	}
}
