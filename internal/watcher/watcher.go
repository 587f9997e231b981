// Package watcher reports file system changes under a repository root as
// debounced batches.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string // Slash-separated, relative to the root
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 500,
		IgnorePatterns: []string{
			"**/*.log",
			"**/*.tmp",
			"**/*.swp",
			"**/*~",
			"**/.DS_Store",
		},
	}
}

// Directories never watched; events below them are ignored.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".cix":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
}

// Watcher watches a directory tree with fsnotify
type Watcher struct {
	root    string
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	batch   *BatchDebouncer

	fs     *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	dirs   int
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if config.DebounceMs <= 0 {
		config.DebounceMs = DefaultConfig().DebounceMs
	}
	w := &Watcher{
		root:    root,
		config:  config,
		logger:  logger,
		handler: handler,
	}
	w.batch = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w
}

// Start registers every directory under the root and begins delivering
// events. The watcher stops when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fs = fw
	if err := w.addRecursive(w.root); err != nil {
		fw.Close()
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.processEvents(ctx)

	w.logger.Info("Starting file watcher",
		"root", w.root,
		"directories", w.dirCount(),
		"debounceMs", w.config.DebounceMs,
	)
	return nil
}

// Stop stops watching and drops pending events
func (w *Watcher) Stop() error {
	if w.fs == nil {
		return nil
	}
	w.cancel()
	err := w.fs.Close()
	w.wg.Wait()
	w.batch.Cancel()
	w.logger.Info("File watcher stopped")
	return err
}

// addRecursive adds a directory and all its subdirectories to the watch list
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil //nolint:nilerr // unreadable subtree, keep walking
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.IsIgnored(w.rel(path)) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Debug("cannot watch directory", "path", path, "error", err)
			return nil
		}
		w.mu.Lock()
		w.dirs++
		w.mu.Unlock()
		return nil
	})
}

// processEvents translates fsnotify events into batched Events
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			rel := w.rel(event.Name)
			if rel == "" || w.IsIgnored(rel) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Debug("cannot watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if typ, ok := translate(event.Op); ok {
				w.batch.Add(Event{Type: typ, Path: rel, Timestamp: time.Now()})
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; report a root change so a full scan runs.
				w.batch.Add(Event{Type: EventModify, Path: ".", Timestamp: time.Now()})
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) emit(events []Event) {
	w.logger.Debug("File changes detected", "eventCount", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}

func translate(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	}
	return 0, false
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// IsIgnored reports whether a slash-separated relative path lies in a skipped
// directory or matches an ignore pattern.
func (w *Watcher) IsIgnored(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if skipDirs[part] {
			return true
		}
	}
	for _, pattern := range w.config.IgnorePatterns {
		if matched, _ := doublestar.Match(filepath.ToSlash(pattern), relPath); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) dirCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	return map[string]interface{}{
		"root":           w.root,
		"watchedDirs":    w.dirCount(),
		"pendingEvents":  w.batch.EventCount(),
		"debounceMs":     w.config.DebounceMs,
		"ignorePatterns": len(w.config.IgnorePatterns),
	}
}
