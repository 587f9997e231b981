package envelope

import (
	"strings"
	"time"

	"cix/internal/errors"
	"cix/internal/query"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	project string
	now     func() time.Time
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{now: time.Now}
}

// Project stamps every envelope with the repository it answers for.
func (b *Builder) Project(root string) *Builder {
	b.project = root
	return b
}

// Clock overrides the timestamp source.
func (b *Builder) Clock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) timestamp() string {
	return b.now().UTC().Format(time.RFC3339)
}

// Result wraps a query answer.
func Result[T any](b *Builder, r *query.Result[T]) *Response {
	return &Response{
		Data: r.Data,
		Meta: &Meta{
			Total:     r.Meta.Total,
			Limit:     r.Meta.Limit,
			Offset:    r.Meta.Offset,
			Source:    r.Meta.Source,
			Timestamp: b.timestamp(),
			Warning:   joinWarnings(r.Meta.Warnings),
			Project:   b.project,
		},
	}
}

// Graph wraps a traversal answer.
func (b *Builder) Graph(r *query.GraphResult) *Response {
	return &Response{
		Data: r.Data,
		Meta: &GraphMeta{
			Source:       r.Meta.Source,
			NodeCount:    r.Meta.NodeCount,
			EdgeCount:    r.Meta.EdgeCount,
			Depth:        r.Meta.Depth,
			DepthReached: r.Meta.DepthReached,
			Truncated:    r.Meta.Truncated,
			Direction:    r.Meta.Direction,
			Timestamp:    b.timestamp(),
			Warning:      joinWarnings(r.Meta.Warnings),
			Project:      b.project,
		},
	}
}

// Data wraps an answer that did not come from the query engine, such as an
// index run summary.
func (b *Builder) Data(data interface{}, total int, source string) *Response {
	return &Response{
		Data: data,
		Meta: &Meta{
			Total:     total,
			Source:    source,
			Timestamp: b.timestamp(),
			Project:   b.project,
		},
	}
}

// Error converts any error into an error envelope. Errors outside the
// taxonomy are reported as internal errors.
func Error(err error) *ErrorResponse {
	ce := errors.As(err)
	return &ErrorResponse{Error: ErrorBody{
		Code:    string(ce.Code),
		Message: ce.Message,
		Details: ce.Details,
	}}
}

func joinWarnings(ws []string) string {
	return strings.Join(ws, "; ")
}
