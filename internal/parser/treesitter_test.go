//go:build cgo

package parser

import (
	"context"
	"testing"

	"cix/internal/grammar"
)

func TestTreeSitterGo(t *testing.T) {
	src := `package shop

import "fmt"

// Cart holds items.
type Cart struct {
	Base
	items []string
}

// Add appends an item.
func (c *Cart) Add(item string) {
	c.items = append(c.items, item)
	logItem(item)
}

func logItem(s string) {
	fmt.Println(s)
}
`
	res, err := newTestAdapter().Parse(context.Background(), "shop/cart.go", []byte(src), grammar.LangGo)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Engine != EngineTreeSitter || res.Partial {
		t.Fatalf("engine = %q partial = %v", res.Engine, res.Partial)
	}

	cart := findCapture(t, res, grammar.TagDefinition, "Cart")
	if cart.Kind != grammar.KindStruct || cart.Doc != "Cart holds items." {
		t.Errorf("Cart = %+v", cart)
	}
	base := findCapture(t, res, grammar.TagExtends, "Base")
	if !equalStrings(scopeNames(base), []string{"Cart"}) {
		t.Errorf("Base scope = %v", scopeNames(base))
	}

	add := findCapture(t, res, grammar.TagDefinition, "Add")
	if add.Kind != grammar.KindMethod || !equalStrings(scopeNames(add), []string{"Cart"}) {
		t.Errorf("Add = %+v", add)
	}
	if add.Doc != "Add appends an item." || add.StartLine != 12 || add.EndLine != 15 {
		t.Errorf("Add doc/span = %q %d-%d", add.Doc, add.StartLine, add.EndLine)
	}

	call := findCapture(t, res, grammar.TagCall, "logItem")
	if !equalStrings(scopeNames(call), []string{"Cart", "Add"}) {
		t.Errorf("logItem call scope = %v", scopeNames(call))
	}
	printCall := findCapture(t, res, grammar.TagCall, "Println")
	if !equalStrings(scopeNames(printCall), []string{"logItem"}) {
		t.Errorf("Println scope = %v", scopeNames(printCall))
	}
	findCapture(t, res, grammar.TagImport, `"fmt"`)
}

func TestTreeSitterPythonDocstringAndBases(t *testing.T) {
	src := `class Repo(Base):
    """Stores rows."""

    def find(self, key):
        """Look up a row."""
        return self.lookup(key)
`
	res, err := newTestAdapter().Parse(context.Background(), "app/repo.py", []byte(src), grammar.LangPython)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	repo := findCapture(t, res, grammar.TagDefinition, "Repo")
	if repo.Doc != "Stores rows." {
		t.Errorf("Repo doc = %q", repo.Doc)
	}
	find := findCapture(t, res, grammar.TagDefinition, "find")
	if !equalStrings(scopeNames(find), []string{"Repo"}) || !find.Scope[0].Class {
		t.Errorf("find scope = %+v", find.Scope)
	}
	if find.Doc != "Look up a row." {
		t.Errorf("find doc = %q", find.Doc)
	}
	base := findCapture(t, res, grammar.TagExtends, "Base")
	if !equalStrings(scopeNames(base), []string{"Repo"}) {
		t.Errorf("Base scope = %v", scopeNames(base))
	}
	findCapture(t, res, grammar.TagCall, "lookup")
}

func TestTreeSitterSyntaxErrorIsPartial(t *testing.T) {
	src := `package broken

func ok() {}

func bad( {
`
	res, err := newTestAdapter().Parse(context.Background(), "broken.go", []byte(src), grammar.LangGo)
	if err != nil {
		t.Fatalf("Parse returned error for malformed input: %v", err)
	}
	if !res.Partial || len(res.Warnings) == 0 {
		t.Errorf("partial = %v warnings = %v", res.Partial, res.Warnings)
	}
	findCapture(t, res, grammar.TagDefinition, "ok")
}
