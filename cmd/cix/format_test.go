package main

import (
	"encoding/json"
	"strings"
	"testing"

	"cix/internal/envelope"
	"cix/internal/errors"
	"cix/internal/index"
	"cix/internal/query"
	"cix/internal/symbols"
)

func line(n int) *int { return &n }

func testSymbol() symbols.Symbol {
	return symbols.Symbol{
		ID:            "src/api/users.py::create_user",
		Name:          "create_user",
		Type:          symbols.TypeFunction,
		QualifiedName: "create_user",
		FilePath:      "src/api/users.py",
		LineStart:     line(10),
		LineEnd:       line(24),
		Layer:         symbols.LayerBackend,
		Domain:        symbols.DomainCode,
	}
}

func TestFormatJSONKeepsEnvelope(t *testing.T) {
	resp := &envelope.Response{
		Data: []symbols.Symbol{},
		Meta: &envelope.Meta{Total: 0, Limit: 20, Source: "index"},
	}
	out, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if string(decoded["data"]) != "[]" {
		t.Errorf("data = %s, want []", decoded["data"])
	}
	if _, ok := decoded["meta"]; !ok {
		t.Error("meta missing")
	}
}

func TestFormatUnsupported(t *testing.T) {
	if _, err := FormatResponse(nil, OutputFormat("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatHumanSearch(t *testing.T) {
	resp := &envelope.Response{
		Data: []query.SearchHit{{Symbol: testSymbol(), Score: 100, MatchType: query.MatchExact}},
		Meta: &envelope.Meta{Total: 3, Limit: 1, Source: "index", Warning: "fts unavailable, results partial"},
	}
	out, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"100.0", "exact", "src/api/users.py:10-24", "1 of 3", "warning: fts unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHumanGraph(t *testing.T) {
	sym := testSymbol()
	resp := &envelope.Response{
		Data: &query.Subgraph{
			Root: sym.ID,
			Nodes: []query.Node{
				{ID: sym.ID, Depth: 0, Symbol: &sym},
				{ID: "?::save", Depth: 1},
			},
			Edges: []symbols.Edge{{SourceID: sym.ID, TargetID: "?::save", RefType: symbols.RefCalls}},
		},
		Meta: &envelope.GraphMeta{Source: "graph", NodeCount: 2, EdgeCount: 1, Depth: 1, DepthReached: 1, Truncated: true},
	}
	out, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"  ?::save (unresolved)", "-Calls->", "2 nodes, 1 edges", "(truncated)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHumanRunSummary(t *testing.T) {
	s := index.NewRunSummary(false)
	s.FilesScanned = 12
	s.FilesParsed = 2
	s.ParseErrors = []index.FileError{{Path: "bad.py", Code: "PARSE_ERROR", Message: "unexpected token"}}

	out, err := FormatResponse(envelope.New().Data(s, s.FilesParsed, "index"), FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "files scanned 12, parsed 2") || !strings.Contains(out, "error bad.py") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFormatHumanFallsBackToJSON(t *testing.T) {
	out, err := FormatResponse(envelope.Error(errors.NewNotFoundError("symbol", "x::y")), FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"NOT_FOUND"`) {
		t.Errorf("error envelope should render as JSON:\n%s", out)
	}
}

func TestSpan(t *testing.T) {
	tests := []struct {
		start, end *int
		want       string
	}{
		{nil, nil, ""},
		{line(4), nil, ":4"},
		{line(4), line(4), ":4"},
		{line(4), line(9), ":4-9"},
	}
	for _, tt := range tests {
		if got := span(tt.start, tt.end); got != tt.want {
			t.Errorf("span = %q, want %q", got, tt.want)
		}
	}
}
