// Package incremental keeps the unified store in step with the working tree.
//
// A run walks the repository, compares each file against its recorded index
// state and re-extracts only what changed. Every file is applied in its own
// transaction, so an interrupted run keeps the files it already committed and
// the next run picks up from the recorded state.
//
// Edges are owned by the file of their source symbol. Re-indexing a file
// replaces all of its edges; deleting a symbol removes every edge that points
// at it.
package incremental

import (
	"cix/internal/config"
)

// ChangeType represents how a file changed
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
	// ChangeTouched means mtime or size moved but the content fingerprint
	// did not; only the recorded state is refreshed.
	ChangeTouched ChangeType = "touched"
)

// ChangedFile represents a file that needs attention in this run
type ChangedFile struct {
	Path        string     // Current path (or the old path for deletions)
	OldPath     string     // Original path for renames
	ChangeType  ChangeType // Type of change
	Fingerprint string     // blake2b-256 of the content, empty if deleted
	Mtime       int64      // Unix nanoseconds
	Size        int64
	Language    string
}

// NeedsParse reports whether the change requires re-extraction.
func (c ChangedFile) NeedsParse() bool {
	switch c.ChangeType {
	case ChangeAdded, ChangeModified, ChangeRenamed:
		return true
	}
	return false
}

// Config configures incremental indexing behavior
type Config struct {
	Workers         int      // Parallel parsers
	Excludes        []string // doublestar patterns relative to the repo root
	MaxFileBytes    int64    // Larger files are skipped; 0 disables the limit
	FollowGitignore bool     // Honour the root .gitignore
	DetectRenames   bool     // Pair deleted and added files by fingerprint
	IndexDocs       bool     // Index documentation files
	SCIPPath        string   // Optional SCIP index used for enrichment
}

// DefaultConfig returns the default incremental indexing configuration
func DefaultConfig() *Config {
	return ConfigFrom(config.DefaultConfig())
}

// ConfigFrom derives the indexer configuration from the repository config.
func ConfigFrom(cfg *config.Config) *Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	workers := cfg.Index.Workers
	if workers < 1 {
		workers = 1
	}
	return &Config{
		Workers:         workers,
		Excludes:        append([]string(nil), cfg.Index.Exclude...),
		MaxFileBytes:    cfg.Index.MaxFileBytes,
		FollowGitignore: cfg.Index.FollowGitignore,
		DetectRenames:   cfg.Index.DetectRenames,
		IndexDocs:       cfg.Index.IndexDocs,
		SCIPPath:        cfg.Index.ScipPath,
	}
}

// Options controls one run.
type Options struct {
	// Force reparses every file regardless of its recorded state.
	Force bool
}
