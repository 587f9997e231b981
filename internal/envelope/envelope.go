// Package envelope provides the standard response wrapper for every verb.
// Successful answers carry {data, meta}; failures carry {error}.
package envelope

// Meta holds response metadata for list-shaped answers.
type Meta struct {
	Total     int    `json:"total"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	Source    string `json:"source"`            // "index", "legacy"
	Timestamp string `json:"timestamp"`         // RFC 3339, UTC
	Warning   string `json:"warning,omitempty"` // partial degradation
	Project   string `json:"project,omitempty"` // repository root
}

// GraphMeta holds response metadata for traversals.
type GraphMeta struct {
	Source       string `json:"source"` // always "graph"
	NodeCount    int    `json:"node_count"`
	EdgeCount    int    `json:"edge_count"`
	Depth        int    `json:"depth"`
	DepthReached int    `json:"depth_reached"`
	Truncated    bool   `json:"truncated"`
	Direction    string `json:"direction"`
	Timestamp    string `json:"timestamp"`
	Warning      string `json:"warning,omitempty"`
	Project      string `json:"project,omitempty"`
}

// Response is the envelope for a successful answer. Meta is *Meta or
// *GraphMeta.
type Response struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse is the envelope for a failed answer.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
