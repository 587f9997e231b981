// Package parser applies grammar rule sets to source files and returns raw
// captures. It never writes anything and never panics on malformed input.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"cix/internal/errors"
	"cix/internal/grammar"
)

// Engines reported in Result.Engine; they double as symbol provenance.
const (
	EngineTreeSitter = "treesitter"
	EngineFallback   = "fallback"
)

// Scope is one enclosing named construct, outermost first in Capture.Scope.
type Scope struct {
	Name  string
	Class bool
}

// Capture is one tagged match.
type Capture struct {
	Tag  string
	Kind string
	Name string
	// Source names the referencing symbol when the match states it explicitly.
	Source    string
	StartByte uint32
	EndByte   uint32
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Scope     []Scope
	Doc       string
	Signature string
}

// IsDefinition reports whether the capture defines a symbol.
func (c Capture) IsDefinition() bool {
	return c.Tag == grammar.TagDefinition
}

// Result is the outcome of parsing one file.
type Result struct {
	Language string
	Engine   string
	Captures []Capture
	Warnings []string
	// Partial is set when the syntax tree contained errors.
	Partial bool
}

// Adapter parses files with the registry's rule sets.
type Adapter struct {
	registry *grammar.Registry
	logger   *slog.Logger
	ts       *tsCache
}

// NewAdapter creates a parser adapter.
func NewAdapter(registry *grammar.Registry, logger *slog.Logger) *Adapter {
	return &Adapter{
		registry: registry,
		logger:   logger,
		ts:       newTSCache(),
	}
}

// Registry returns the grammar registry in use.
func (a *Adapter) Registry() *grammar.Registry {
	return a.registry
}

// TreeSitterAvailable reports whether this build can parse syntax trees.
func TreeSitterAvailable() bool {
	return treeSitterEnabled
}

// Parse returns the captures for one file. A ParseError is returned only when
// nothing can be produced; syntax errors yield a partial result with a warning.
func (a *Adapter) Parse(ctx context.Context, path string, src []byte, lang string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = errors.NewParseError(path, fmt.Sprintf("parser panic: %v", r))
		}
	}()

	if looksBinary(src) {
		return nil, errors.NewParseError(path, "binary content")
	}

	rs := a.registry.ForLanguage(lang)
	var warnings []string

	if rs.HasTreeSitter() {
		tsRes, ok, tsErr := a.parseTreeSitter(ctx, rs, src)
		switch {
		case ok && tsErr == nil:
			tsRes.Language = lang
			return tsRes, nil
		case tsErr != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case tsErr != nil:
			warnings = append(warnings, "tree-sitter failed, using generic patterns: "+tsErr.Error())
		}
	}

	patterns := rs.Patterns
	if len(patterns) == 0 {
		patterns = a.registry.Generic().Patterns
	}
	res = parseGeneric(patterns, rs.Indent, rs.Blocks, src)
	res.Language = lang
	res.Warnings = append(warnings, res.Warnings...)
	return res, nil
}

// looksBinary mirrors the NUL-byte heuristic git uses on the first 8000 bytes.
func looksBinary(src []byte) bool {
	n := len(src)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(src[:n], 0) >= 0
}
