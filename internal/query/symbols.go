package query

import (
	"context"

	"cix/internal/storage"
	"cix/internal/symbols"
)

// ListOptions filters List.
type ListOptions struct {
	Type     string
	Layer    string
	Domain   string
	Category string
	File     string
	// IncludeFiles keeps the File bookkeeping symbols in the listing.
	IncludeFiles bool
	Limit        int
	Offset       int
}

// List returns one page of symbols ordered by file and line.
func (e *Engine) List(ctx context.Context, opts ListOptions) (*Result[[]symbols.Symbol], error) {
	limit, offset, err := e.page(opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	typ, err := parseType(opts.Type)
	if err != nil {
		return nil, err
	}
	layer, err := parseLayer(opts.Layer)
	if err != nil {
		return nil, err
	}
	domain, err := parseDomain(opts.Domain)
	if err != nil {
		return nil, err
	}

	f := storage.SymbolFilter{
		Layer:        layer,
		Domain:       domain,
		Category:     opts.Category,
		FilePath:     opts.File,
		ExcludeFiles: !opts.IncludeFiles && typ != symbols.TypeFile,
		Limit:        limit,
		Offset:       offset,
	}
	if typ != "" {
		f.Types = []symbols.SymbolType{typ}
	}
	syms, total, err := e.symbols.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if syms == nil {
		syms = []symbols.Symbol{}
	}
	return &Result[[]symbols.Symbol]{Data: syms, Meta: e.meta(total, limit, offset)}, nil
}

// SymbolDetail is a symbol with its edge degrees.
type SymbolDetail struct {
	symbols.Symbol
	InCount  int `json:"in_count"`
	OutCount int `json:"out_count"`
}

// Get returns one symbol and its incoming and outgoing edge counts.
func (e *Engine) Get(ctx context.Context, id string) (*Result[*SymbolDetail], error) {
	s, err := e.requireSymbol(ctx, id)
	if err != nil {
		return nil, err
	}
	in, out, err := e.edges.Degree(ctx, s)
	if err != nil {
		return nil, err
	}
	d := &SymbolDetail{Symbol: *s, InCount: in, OutCount: out}
	return &Result[*SymbolDetail]{Data: d, Meta: e.meta(1, 0, 0)}, nil
}

// Content is the body of a symbol with its location.
type Content struct {
	ID        string `json:"id"`
	FilePath  string `json:"file_path"`
	LineStart *int   `json:"line_start"`
	LineEnd   *int   `json:"line_end"`
	Content   string `json:"content"`
}

// Content returns the stored body of a symbol. A symbol without a body
// yields an empty string.
func (e *Engine) Content(ctx context.Context, id string) (*Result[*Content], error) {
	s, err := e.requireSymbol(ctx, id)
	if err != nil {
		return nil, err
	}
	c := &Content{ID: s.ID, FilePath: s.FilePath, LineStart: s.LineStart, LineEnd: s.LineEnd}
	if s.Content != nil {
		c.Content = *s.Content
	}
	return &Result[*Content]{Data: c, Meta: e.meta(1, 0, 0)}, nil
}

// Categories counts symbols per category with a per-layer breakdown.
func (e *Engine) Categories(ctx context.Context) (*Result[[]storage.CategoryCount], error) {
	cats, err := e.symbols.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []storage.CategoryCount{}
	}
	return &Result[[]storage.CategoryCount]{Data: cats, Meta: e.meta(len(cats), 0, 0)}, nil
}
