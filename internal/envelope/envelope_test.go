package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"cix/internal/errors"
	"cix/internal/query"
)

var fixedClock = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600)) }

func decode(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestResultEnvelope(t *testing.T) {
	r := &query.Result[[]string]{
		Data: []string{"a.py::a", "b.py::b"},
		Meta: query.Meta{Total: 12, Limit: 2, Offset: 4, Source: query.SourceIndex},
	}
	resp := Result(New().Clock(fixedClock).Project("/src/shop"), r)

	got := decode(t, resp)
	data, ok := got["data"].([]interface{})
	if !ok || len(data) != 2 {
		t.Fatalf("data = %v", got["data"])
	}
	meta := got["meta"].(map[string]interface{})
	want := map[string]interface{}{
		"total":     12.0,
		"limit":     2.0,
		"offset":    4.0,
		"source":    "index",
		"timestamp": "2026-03-01T08:30:00Z",
		"project":   "/src/shop",
	}
	for k, v := range want {
		if meta[k] != v {
			t.Errorf("meta[%s] = %v, want %v", k, meta[k], v)
		}
	}
	if _, ok := meta["warning"]; ok {
		t.Error("warning should be omitted when there is none")
	}
}

func TestResultEnvelopeWarnings(t *testing.T) {
	r := &query.Result[[]string]{
		Data: []string{},
		Meta: query.Meta{Source: query.SourceLegacy, Warnings: []string{query.WarnLegacy, query.WarnFTSPartial}},
	}
	meta := Result(New(), r).Meta.(*Meta)
	if meta.Warning != "legacy source in use; fts unavailable, results partial" {
		t.Errorf("Warning = %q", meta.Warning)
	}
	if meta.Project != "" {
		t.Errorf("Project = %q, want empty", meta.Project)
	}

	// An empty list must still encode as [] rather than null.
	if got := decode(t, Result(New(), r)); fmt.Sprint(got["data"]) != "[]" {
		t.Errorf("data = %v", got["data"])
	}
}

func TestGraphEnvelope(t *testing.T) {
	r := &query.GraphResult{
		Data: &query.Subgraph{Root: "a.py::a"},
		Meta: query.GraphMeta{
			Source: query.SourceGraph, NodeCount: 2, EdgeCount: 2,
			Depth: 5, DepthReached: 1, Direction: query.DirectionOut,
		},
	}
	meta := decode(t, New().Clock(fixedClock).Graph(r))["meta"].(map[string]interface{})

	for _, key := range []string{"source", "node_count", "edge_count", "depth", "depth_reached", "truncated", "direction"} {
		if _, ok := meta[key]; !ok {
			t.Errorf("graph meta lacks %s", key)
		}
	}
	if meta["source"] != "graph" || meta["truncated"] != false || meta["depth_reached"] != 1.0 {
		t.Errorf("meta = %v", meta)
	}
	if _, ok := meta["total"]; ok {
		t.Error("graph meta should not carry list paging")
	}
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
		wantDetails bool
	}{
		{
			name:        "not found",
			err:         errors.NewNotFoundError("symbol", "a.py::gone"),
			wantCode:    "NOT_FOUND",
			wantMessage: "a.py::gone",
			wantDetails: true,
		},
		{
			name:        "wrapped validation",
			err:         fmt.Errorf("search: %w", errors.NewValidationError("limit", "limit must be between 1 and 500")),
			wantCode:    "VALIDATION_ERROR",
			wantMessage: "limit must be between 1 and 500",
			wantDetails: true,
		},
		{
			name:        "plain error",
			err:         fmt.Errorf("disk on fire"),
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "disk on fire",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decode(t, Error(tt.err))
			body, ok := got["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("no error body: %v", got)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
			if msg, _ := body["message"].(string); !strings.Contains(msg, tt.wantMessage) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.wantMessage)
			}
			if _, ok := body["details"]; ok != tt.wantDetails {
				t.Errorf("details present = %v, want %v", ok, tt.wantDetails)
			}
			if _, ok := got["data"]; ok {
				t.Error("error envelope must not carry data")
			}
		})
	}
}

func TestDataEnvelope(t *testing.T) {
	resp := New().Clock(fixedClock).Data(map[string]int{"files_parsed": 3}, 3, "index")
	meta := resp.Meta.(*Meta)
	if meta.Total != 3 || meta.Source != "index" || meta.Timestamp != "2026-03-01T08:30:00Z" {
		t.Errorf("meta = %+v", meta)
	}
}
