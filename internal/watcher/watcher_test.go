package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.eventType.String(); got != tt.expected {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.eventType, got, tt.expected)
		}
	}
}

func TestNewAppliesDefaultDebounce(t *testing.T) {
	w := New(t.TempDir(), Config{}, discardLogger(), nil)
	if w.config.DebounceMs != DefaultConfig().DebounceMs {
		t.Errorf("DebounceMs = %d, want default", w.config.DebounceMs)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}

func TestWatcherIsIgnored(t *testing.T) {
	w := New(t.TempDir(), DefaultConfig(), discardLogger(), nil)

	tests := []struct {
		path    string
		ignored bool
	}{
		{"main.go", false},
		{"pkg/server/handler.go", false},
		{".cix/index.db", true},
		{".cix/index.db-wal", true},
		{".git/HEAD", true},
		{"web/node_modules/react/index.js", true},
		{"logs/debug.log", true},
		{"notes.md~", true},
		{"docs/guide.md", false},
	}
	for _, tt := range tests {
		if got := w.IsIgnored(tt.path); got != tt.ignored {
			t.Errorf("IsIgnored(%q) = %v, want %v", tt.path, got, tt.ignored)
		}
	}
}

func TestWatcherDeliversBatch(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "pkg"), 0755); err != nil {
		t.Fatal(err)
	}

	got := make(chan []Event, 4)
	w := New(root, Config{DebounceMs: 50}, discardLogger(), func(events []Event) {
		got <- events
	})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "pkg", "a.go"), []byte("package pkg\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// Writes under .cix must never reach the handler.
	if err := os.MkdirAll(filepath.Join(root, ".cix"), 0755); err != nil {
		t.Fatal(err)
	}

	select {
	case events := <-got:
		found := false
		for _, e := range events {
			if e.Path == "pkg/a.go" {
				found = true
			}
			if e.Path == ".cix" {
				t.Errorf("event for ignored directory: %+v", e)
			}
		}
		if !found {
			t.Errorf("batch %+v does not contain pkg/a.go", events)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestNewBatchDebouncer(t *testing.T) {
	b := NewBatchDebouncer(100*time.Millisecond, func([]Event) {})
	if b.delay != 100*time.Millisecond {
		t.Errorf("delay = %v, want 100ms", b.delay)
	}
	if b.events == nil {
		t.Error("events should be initialized")
	}
}

func TestBatchDebouncerAdd(t *testing.T) {
	var received []Event
	var mu sync.Mutex

	b := NewBatchDebouncer(50*time.Millisecond, func(events []Event) {
		mu.Lock()
		received = events
		mu.Unlock()
	})

	b.Add(Event{Type: EventCreate, Path: "file2.go"})
	b.Add(Event{Type: EventModify, Path: "file1.go"})
	b.Add(Event{Type: EventDelete, Path: "file3.go"})

	if b.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3", b.EventCount())
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("Should have received 3 events, got %d", len(received))
	}
	if received[0].Path != "file1.go" || received[2].Path != "file3.go" {
		t.Errorf("batch not in path order: %+v", received)
	}
}

func TestBatchDebouncerCoalescesPaths(t *testing.T) {
	b := NewBatchDebouncer(time.Hour, nil)
	b.Add(Event{Type: EventCreate, Path: "a.go"})
	b.Add(Event{Type: EventModify, Path: "a.go"})
	b.Add(Event{Type: EventDelete, Path: "a.go"})

	if b.EventCount() != 1 {
		t.Fatalf("EventCount() = %d, want 1", b.EventCount())
	}

	var received []Event
	b.emit = func(events []Event) { received = events }
	b.Flush()
	if len(received) != 1 || received[0].Type != EventDelete {
		t.Errorf("latest event should win, got %+v", received)
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	var called bool
	var mu sync.Mutex

	b := NewBatchDebouncer(50*time.Millisecond, func([]Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	b.Add(Event{Type: EventCreate, Path: "file.go"})
	b.Cancel()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	if called {
		t.Error("Emit should not be called after cancel")
	}
	mu.Unlock()

	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 after cancel", b.EventCount())
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var received []Event

	b := NewBatchDebouncer(500*time.Millisecond, func(events []Event) {
		received = events
	})
	b.Add(Event{Type: EventCreate, Path: "file.go"})
	b.Flush()

	if len(received) != 1 {
		t.Errorf("Should have received 1 event, got %d", len(received))
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 after flush", b.EventCount())
	}
}

func TestBatchDebouncerNoEmitWithNoEvents(t *testing.T) {
	called := false
	b := NewBatchDebouncer(10*time.Millisecond, func([]Event) { called = true })
	b.Flush()
	if called {
		t.Error("Emit should not be called with no events")
	}
}
