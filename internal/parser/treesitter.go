//go:build cgo

package parser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"cix/internal/grammar"
)

const treeSitterEnabled = true

var tsLanguages = map[string]func() *sitter.Language{
	grammar.LangGo:         golang.GetLanguage,
	grammar.LangPython:     python.GetLanguage,
	grammar.LangJavaScript: javascript.GetLanguage,
	grammar.LangTypeScript: typescript.GetLanguage,
	grammar.LangTSX:        tsx.GetLanguage,
	grammar.LangRust:       rust.GetLanguage,
	grammar.LangJava:       java.GetLanguage,
	grammar.LangKotlin:     kotlin.GetLanguage,
}

// wrapperNodes sit between a definition and its leading comments.
var wrapperNodes = map[string]bool{
	"export_statement":     true,
	"decorated_definition": true,
	"type_declaration":     true,
	"lexical_declaration":  true,
	"variable_declaration": true,
}

var identifierNodes = map[string]bool{
	"identifier":          true,
	"type_identifier":     true,
	"field_identifier":    true,
	"property_identifier": true,
	"simple_identifier":   true,
	"constant":            true,
}

type compiledRules struct {
	lang    *sitter.Language
	queries []*sitter.Query
}

// tsCache compiles each language's queries once; compiled queries are
// shared across goroutines, cursors and parsers are not.
type tsCache struct {
	mu    sync.Mutex
	rules map[string]*compiledRules
}

func newTSCache() *tsCache {
	return &tsCache{rules: make(map[string]*compiledRules)}
}

func (a *Adapter) compiled(rs *grammar.RuleSet) (*compiledRules, bool) {
	a.ts.mu.Lock()
	defer a.ts.mu.Unlock()

	if c, ok := a.ts.rules[rs.Language]; ok {
		return c, c != nil
	}
	getLang, ok := tsLanguages[rs.Language]
	if !ok {
		a.ts.rules[rs.Language] = nil
		return nil, false
	}

	c := &compiledRules{lang: getLang()}
	for _, src := range rs.Queries {
		q, err := sitter.NewQuery([]byte(src), c.lang)
		if err != nil {
			a.logger.Warn("grammar query rejected",
				"language", rs.Language,
				"query", src,
				"error", err.Error(),
			)
			continue
		}
		c.queries = append(c.queries, q)
	}
	if len(c.queries) == 0 {
		a.ts.rules[rs.Language] = nil
		return nil, false
	}
	a.ts.rules[rs.Language] = c
	return c, true
}

// parseTreeSitter returns ok=false when the language has no usable tree-sitter grammar.
func (a *Adapter) parseTreeSitter(ctx context.Context, rs *grammar.RuleSet, src []byte) (*Result, bool, error) {
	c, ok := a.compiled(rs)
	if !ok {
		return nil, false, nil
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(c.lang)

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, true, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{Engine: EngineTreeSitter}
	if root.HasError() {
		res.Partial = true
		res.Warnings = append(res.Warnings, "syntax errors in file; captures may be incomplete")
	}

	for _, q := range c.queries {
		qc := sitter.NewQueryCursor()
		qc.Exec(q, root)
		for {
			m, ok := qc.NextMatch()
			if !ok {
				break
			}
			m = qc.FilterPredicates(m, src)
			if capture, ok := buildCapture(q, m, rs, src); ok {
				res.Captures = append(res.Captures, capture)
			}
		}
		qc.Close()
	}

	sort.SliceStable(res.Captures, func(i, j int) bool {
		return res.Captures[i].StartByte < res.Captures[j].StartByte
	})
	return res, true, nil
}

func buildCapture(q *sitter.Query, m *sitter.QueryMatch, rs *grammar.RuleSet, src []byte) (Capture, bool) {
	var (
		main             *sitter.Node
		tag, kind        string
		name, sourceName string
	)
	for _, c := range m.Captures {
		cname := q.CaptureNameForId(c.Index)
		switch {
		case cname == grammar.TagName:
			name = c.Node.Content(src)
		case cname == grammar.TagSource:
			sourceName = c.Node.Content(src)
		case grammar.IsReferenceTag(cname):
			main, tag = c.Node, cname
		default:
			if k, ok := grammar.IsDefinitionTag(cname); ok {
				main, tag, kind = c.Node, grammar.TagDefinition, k
			}
		}
	}
	if main == nil {
		return Capture{}, false
	}

	start, end := main.StartPoint(), main.EndPoint()
	capture := Capture{
		Tag:       tag,
		Kind:      kind,
		Name:      name,
		Source:    sourceName,
		StartByte: main.StartByte(),
		EndByte:   main.EndByte(),
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}

	if tag == grammar.TagDefinition {
		capture.Scope = scopeChain(main.Parent(), rs, src)
		if sn, ok := rs.ScopeNodes[main.Type()]; ok && sn.Receiver != "" {
			if recv := receiverType(main, sn.Receiver, src); recv != "" {
				capture.Scope = append(capture.Scope, Scope{Name: recv, Class: true})
			}
		}
		capture.Doc = docFor(main, rs, src)
		capture.Signature = firstLine(main.Content(src))
	} else {
		capture.Scope = scopeChain(main, rs, src)
	}
	return capture, true
}

// scopeChain returns the named scopes enclosing n (n included), outermost first.
func scopeChain(n *sitter.Node, rs *grammar.RuleSet, src []byte) []Scope {
	var chain []Scope
	for cur := n; cur != nil && !cur.IsNull(); cur = cur.Parent() {
		sn, ok := rs.ScopeNodes[cur.Type()]
		if !ok {
			continue
		}
		name := scopeNodeName(cur, sn, src)
		if name == "" {
			continue
		}
		chain = append(chain, Scope{Name: name, Class: sn.Class})
		if sn.Receiver != "" {
			if recv := receiverType(cur, sn.Receiver, src); recv != "" {
				chain = append(chain, Scope{Name: recv, Class: true})
			}
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func scopeNodeName(n *sitter.Node, sn grammar.ScopeNode, src []byte) string {
	if sn.Field != "" {
		if f := n.ChildByFieldName(sn.Field); f != nil {
			if identifierNodes[f.Type()] {
				return f.Content(src)
			}
			if id := firstIdentifier(f); id != nil {
				return id.Content(src)
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if identifierNodes[child.Type()] {
			return child.Content(src)
		}
	}
	return ""
}

func receiverType(n *sitter.Node, field string, src []byte) string {
	recv := n.ChildByFieldName(field)
	if recv == nil {
		return ""
	}
	var found *sitter.Node
	walk(recv, func(c *sitter.Node) bool {
		if c.Type() == "type_identifier" {
			found = c
			return false
		}
		return true
	})
	if found == nil {
		return ""
	}
	return found.Content(src)
}

func firstIdentifier(n *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walk(n, func(c *sitter.Node) bool {
		if identifierNodes[c.Type()] {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n depth-first until visit returns false.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if !walk(n.NamedChild(i), visit) {
			return false
		}
	}
	return true
}

func docFor(def *sitter.Node, rs *grammar.RuleSet, src []byte) string {
	if rs.Docstrings {
		if doc := docstring(def, src); doc != "" {
			return doc
		}
	}
	if len(rs.DocNodes) == 0 {
		return ""
	}

	anchor := def
	for p := def.Parent(); p != nil && !p.IsNull() && wrapperNodes[p.Type()]; p = p.Parent() {
		anchor = p
	}

	var lines []string
	nextRow := anchor.StartPoint().Row
	for sib := anchor.PrevNamedSibling(); sib != nil && !sib.IsNull(); sib = sib.PrevNamedSibling() {
		if !isDocNode(sib.Type(), rs) || sib.EndPoint().Row+1 < nextRow {
			break
		}
		lines = append([]string{stripComment(sib.Content(src))}, lines...)
		nextRow = sib.StartPoint().Row
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isDocNode(t string, rs *grammar.RuleSet) bool {
	for _, d := range rs.DocNodes {
		if d == t {
			return true
		}
	}
	return false
}

func docstring(def *sitter.Node, src []byte) string {
	body := def.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	text := str.Content(src)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			text = text[len(q) : len(text)-len(q)]
			break
		}
	}
	return strings.TrimSpace(text)
}
