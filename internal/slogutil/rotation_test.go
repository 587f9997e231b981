package slogutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cix/internal/config"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"", 0},
		{"invalid", 0},
		{"100", 100},
		{"100b", 100},
		{"1KB", 1024},
		{"10MB", 10 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"1.5MB", int64(1.5 * 1024 * 1024)},
		{"-1MB", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.log")

	rf, err := OpenRotatingFile(path, 50, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	defer rf.Close()

	line := []byte(strings.Repeat("x", 30) + "\n")
	for i := 0; i < 6; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("only two backups should be kept")
	}
}

func TestNewIndexLogger(t *testing.T) {
	root := t.TempDir()
	var console strings.Builder

	logger, closer := NewIndexLogger(root, config.DefaultConfig(),
		NewLineHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("index run finished", "files", 3)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !strings.Contains(console.String(), "files=3") {
		t.Errorf("console output = %q", console.String())
	}
	data, err := os.ReadFile(filepath.Join(root, ".cix", "logs", "index.log"))
	if err != nil {
		t.Fatalf("reading index log: %v", err)
	}
	if !strings.Contains(string(data), "index run finished") {
		t.Errorf("index log = %q", data)
	}
}
