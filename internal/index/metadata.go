// Package index holds the single-writer lock and the persisted summary of
// the most recent index run.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	// SummaryVersion is the current version of the last-run format.
	SummaryVersion = 1

	summaryFile = "last-run.json"

	// staleAfter is the age at which a finished run no longer counts as fresh.
	staleAfter = 24 * time.Hour
)

// RenamePair records a file detected as moved.
type RenamePair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FileError is a per-file failure that did not abort the run.
type FileError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunSummary describes one index run.
type RunSummary struct {
	Version    int       `json:"version"`
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Force      bool      `json:"force"`

	FilesScanned   int          `json:"files_scanned"`
	FilesParsed    int          `json:"files_parsed"`
	FilesSkipped   int          `json:"files_skipped"`
	FilesTouched   int          `json:"files_touched"`
	FilesDeleted   int          `json:"files_deleted"`
	FilesRenamed   int          `json:"files_renamed"`
	Renames        []RenamePair `json:"renames,omitempty"`
	SymbolsChanged int          `json:"symbols_upserted"`
	SymbolsDeleted int          `json:"symbols_deleted"`
	EdgesWritten   int          `json:"edges_written"`
	EdgesRemoved   int          `json:"edges_removed"`

	LineageRecomputed bool `json:"lineage_recomputed"`
	LineageRecords    int  `json:"lineage_records"`
	SCIPEnriched      int  `json:"scip_enriched,omitempty"`

	ParseErrors []FileError `json:"parse_errors,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
	// Interrupted is set when the run was cancelled; committed files persist.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewRunSummary starts a summary with a fresh run id.
func NewRunSummary(force bool) *RunSummary {
	return &RunSummary{
		Version:   SummaryVersion,
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Force:     force,
	}
}

// Finish stamps the run duration.
func (s *RunSummary) Finish() {
	s.DurationMs = time.Since(s.StartedAt).Milliseconds()
}

// Duration returns the run duration.
func (s *RunSummary) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// NoChanges reports whether the run left the store untouched.
func (s *RunSummary) NoChanges() bool {
	return s.FilesParsed == 0 && s.FilesDeleted == 0 && s.FilesRenamed == 0 &&
		s.SymbolsChanged == 0 && s.SymbolsDeleted == 0
}

// LoadLastRun reads the last run summary from cixDir.
// Returns nil without error if no run has been recorded.
func LoadLastRun(cixDir string) (*RunSummary, error) {
	data, err := os.ReadFile(filepath.Join(cixDir, summaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last run summary: %w", err)
	}

	var s RunSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing last run summary: %w", err)
	}
	// Version mismatch - treat as no summary
	if s.Version != SummaryVersion {
		return nil, nil
	}
	return &s, nil
}

// Save writes the summary to cixDir.
func (s *RunSummary) Save(cixDir string) error {
	if err := os.MkdirAll(cixDir, 0755); err != nil {
		return fmt.Errorf("creating .cix directory: %w", err)
	}
	s.Version = SummaryVersion

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}

	// Write then rename so readers never see a torn file.
	path := filepath.Join(cixDir, summaryFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

// FreshnessResult describes index freshness status.
type FreshnessResult struct {
	Fresh  bool   `json:"fresh"`
	Reason string `json:"reason,omitempty"`
	Age    string `json:"age,omitempty"`
}

// CheckFreshness reports whether the last run is recent enough to trust
// without re-indexing.
func (s *RunSummary) CheckFreshness(now time.Time) FreshnessResult {
	if s == nil {
		return FreshnessResult{Reason: "no index run recorded"}
	}
	age := now.Sub(s.StartedAt.Add(s.Duration()))
	res := FreshnessResult{Fresh: true, Age: humanDuration(age)}
	switch {
	case s.Interrupted:
		res.Fresh = false
		res.Reason = "last index run was interrupted"
	case age > staleAfter:
		res.Fresh = false
		res.Reason = fmt.Sprintf("index is %s old", humanDuration(age))
	}
	return res
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
