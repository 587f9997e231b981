package slogutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("file parsed", "path", "src/a.go", "symbols", 4)

	out := buf.String()
	for _, want := range []string{"[info]", "file parsed", " | ", "path=src/a.go", "symbols=4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("records below warn leaked: %q", out)
	}
	if !strings.Contains(out, "[warn] warn message") || !strings.Contains(out, "[error] error message") {
		t.Errorf("missing warn/error records: %q", out)
	}
}

func TestLineHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("run", "r1").WithGroup("query")

	logger.Info("search", "tier", "exact")

	out := buf.String()
	if !strings.Contains(out, "run=r1") {
		t.Errorf("missing pre-set attr: %q", out)
	}
	if !strings.Contains(out, "query.tier=exact") {
		t.Errorf("missing grouped key: %q", out)
	}
}

func TestNewFormatLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	NewFormatLogger(&buf, "json", slog.LevelInfo).Info("hello", "n", 1)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json output not parseable: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{3, false, slog.LevelDebug},
		{5, true, silent},
	}
	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	var info, warn bytes.Buffer
	logger := NewTeeLogger(
		NewLineHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		NewLineHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(info.String(), "info message") || !strings.Contains(info.String(), "warn message") {
		t.Errorf("info sink = %q", info.String())
	}
	if strings.Contains(warn.String(), "info message") || !strings.Contains(warn.String(), "warn message") {
		t.Errorf("warn sink = %q", warn.String())
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled at error level")
	}
}
