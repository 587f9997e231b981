package symbols

import "testing"

func TestIDHelpers(t *testing.T) {
	if got := ID("a/b.go", "Cart.Add"); got != "a/b.go::Cart.Add" {
		t.Errorf("ID = %q", got)
	}
	if got := FileID("a/b.go"); got != "a/b.go::a/b.go" {
		t.Errorf("FileID = %q", got)
	}
	if got := PositionalID("a/b.go", "init", 4, 1); got != "a/b.go::init::4:1" {
		t.Errorf("PositionalID = %q", got)
	}
	if got := PositionalID("a/b.go", "", 9, 3); got != "a/b.go::9:3" {
		t.Errorf("anonymous PositionalID = %q", got)
	}
	if !IsPlaceholder(PlaceholderID("save")) || IsPlaceholder("a.go::save") {
		t.Error("IsPlaceholder misclassified")
	}
	if !IsImport(ImportID("fmt")) {
		t.Error("IsImport misclassified")
	}
}

func TestTargetName(t *testing.T) {
	tests := map[string]string{
		"?::Cart.total":         "Cart.total",
		"import::net/http":      "net/http",
		"a/b.go::Cart.Add":      "Add",
		"a/b.go::helper::12:1":  "helper",
		"a/b.go::a/b.go":        "a/b.go",
		"docs/x.md::Setup":      "Setup",
		"no-separator-whatever": "no-separator-whatever",
	}
	for id, want := range tests {
		if got := TargetName(id); got != want {
			t.Errorf("TargetName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestMinConfidence(t *testing.T) {
	high, low := Ptr(ConfidenceHigh), Ptr(ConfidenceLow)
	if got := MinConfidence(high, low); *got != ConfidenceLow {
		t.Errorf("MinConfidence(high, low) = %v", *got)
	}
	if got := MinConfidence(nil, high); *got != ConfidenceHigh {
		t.Errorf("MinConfidence(nil, high) = %v", *got)
	}
	if MinConfidence(nil, nil) != nil {
		t.Error("MinConfidence(nil, nil) should be nil")
	}
}

func TestRefTypePartition(t *testing.T) {
	tests := map[RefType]string{
		RefCalls:      PartitionCalls,
		RefImports:    PartitionImports,
		RefExtends:    PartitionInheritance,
		RefImplements: PartitionInheritance,
		RefMapsTo:     PartitionMapping,
		RefReferences: PartitionMapping,
	}
	for ref, want := range tests {
		if got := ref.Partition(); got != want {
			t.Errorf("%s.Partition() = %q, want %q", ref, got, want)
		}
	}
}

func TestParseEnums(t *testing.T) {
	if st, ok := ParseSymbolType("docsection"); !ok || st != TypeDocSection {
		t.Errorf("ParseSymbolType = %v %v", st, ok)
	}
	if _, ok := ParseSymbolType("Widget"); ok {
		t.Error("unknown type accepted")
	}
	if l, ok := ParseLayer("database"); !ok || l != LayerDatabase {
		t.Errorf("ParseLayer = %v %v", l, ok)
	}
	if r, ok := ParseRefType("maps_to"); ok {
		t.Errorf("ParseRefType accepted %v", r)
	}
}
