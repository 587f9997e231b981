// Package grammar holds the declarative per-language rule tables that drive
// extraction. A rule set is data: tree-sitter query patterns whose capture
// names tag what was matched, plus line patterns used when no syntax tree is
// available. Adding a language means registering another table.
package grammar

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Capture tags understood by the parser and extractor.
const (
	TagDefinition = "definition"
	TagName       = "name"
	TagCall       = "reference.call"
	TagImport     = "reference.import"
	TagExtends    = "reference.extends"
	TagImplements = "reference.implements"
	TagReference  = "reference.ref"
	TagSource     = "source"
)

// Definition kinds carried after "definition." in a capture name.
const (
	KindClass     = "class"
	KindMethod    = "method"
	KindFunction  = "function"
	KindInterface = "interface"
	KindStruct    = "struct"
	KindEnum      = "enum"
	KindTrait     = "trait"
	KindType      = "type"
	KindModule    = "module"
	KindTable     = "table"
	KindColumn    = "column"
)

// ScopeNode describes a syntax node type that contributes a name to the
// qualified names of everything nested inside it.
type ScopeNode struct {
	// Field holding the name; empty means the first identifier-like child.
	Field string
	// Receiver names a field whose first type identifier prefixes the scope (Go methods).
	Receiver string
	// Class marks type-like scopes; functions directly inside become methods.
	Class bool
}

// Pattern is a line-oriented rule for the generic engine. The regex must
// contain a named group "name"; an optional "kind" group overrides Kind.
type Pattern struct {
	Tag   string
	Kind  string
	Regex *regexp.Regexp
	// Scoped patterns only match inside an open scope of the given kind.
	Within string
}

// RuleSet is the grammar table for one language.
type RuleSet struct {
	Language   string
	Extensions []string
	// Queries are compiled one by one so a pattern a grammar version rejects
	// only disables itself.
	Queries    []string
	ScopeNodes map[string]ScopeNode
	// DocNodes are sibling node types treated as doc comments.
	DocNodes []string
	// Docstrings enables first-statement string literals as docs (Python).
	Docstrings bool
	// Patterns drive the generic engine for this language.
	Patterns []Pattern
	// Indent selects indentation scoping for the generic engine instead of braces.
	Indent bool
	// Blocks is the open/close pair delimiting generic scopes; "{}" when empty.
	Blocks string
}

// HasTreeSitter reports whether the rule set carries syntax-tree queries.
func (r *RuleSet) HasTreeSitter() bool {
	return len(r.Queries) > 0
}

// IsDefinitionTag reports whether a capture name tags a definition and returns its kind.
func IsDefinitionTag(capture string) (string, bool) {
	if kind, ok := strings.CutPrefix(capture, TagDefinition+"."); ok {
		return kind, true
	}
	return "", false
}

// IsReferenceTag reports whether a capture name tags a reference.
func IsReferenceTag(capture string) bool {
	switch capture {
	case TagCall, TagImport, TagExtends, TagImplements, TagReference:
		return true
	}
	return false
}

// Registry maps language ids and file extensions to rule sets.
type Registry struct {
	mu      sync.RWMutex
	byLang  map[string]*RuleSet
	byExt   map[string]string
	generic *RuleSet
}

// NewRegistry returns a registry loaded with the built-in tables.
func NewRegistry() *Registry {
	r := &Registry{
		byLang:  make(map[string]*RuleSet),
		byExt:   make(map[string]string),
		generic: genericRuleSet(),
	}
	for _, rs := range builtin() {
		r.Register(rs)
	}
	return r
}

// Register adds or replaces a rule set.
func (r *Registry) Register(rs *RuleSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[rs.Language] = rs
	for _, ext := range rs.Extensions {
		r.byExt[strings.ToLower(ext)] = rs.Language
	}
}

// Lookup returns the rule set for a language id.
func (r *Registry) Lookup(lang string) (*RuleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.byLang[lang]
	return rs, ok
}

// Generic returns the fallback rule set.
func (r *Registry) Generic() *RuleSet {
	return r.generic
}

// LanguageFor returns the language id for a path, or "" when the extension is unknown.
func (r *Registry) LanguageFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if lang, ok := r.byExt[ext]; ok {
		return lang
	}
	if lang, ok := genericExtensions[ext]; ok {
		return lang
	}
	return ""
}

// ForLanguage returns the rule set to apply, falling back to the generic one.
func (r *Registry) ForLanguage(lang string) *RuleSet {
	if rs, ok := r.Lookup(lang); ok {
		return rs
	}
	return r.generic
}

// Languages lists registered language ids in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLang))
	for l := range r.byLang {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Extend adds extensions to an already registered language.
func (r *Registry) Extend(lang string, exts ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.byLang[lang]
	if !ok {
		return false
	}
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		rs.Extensions = append(rs.Extensions, ext)
		r.byExt[ext] = lang
	}
	return true
}

// DocExtensions are handled by the document extractor rather than a grammar.
var DocExtensions = map[string]bool{
	".md":       true,
	".mdx":      true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".rst":      true,
	".txt":      true,
}

// IsDoc reports whether a path is a documentation file.
func IsDoc(path string) bool {
	return DocExtensions[strings.ToLower(filepath.Ext(path))]
}
