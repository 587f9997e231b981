package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadLastRun_NoFile(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := LoadLastRun(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatal("expected nil summary when file doesn't exist")
	}
}

func TestSaveAndLoadLastRun(t *testing.T) {
	tmpDir := t.TempDir()

	original := NewRunSummary(true)
	original.FilesScanned = 50
	original.FilesParsed = 3
	original.FilesRenamed = 1
	original.Renames = []RenamePair{{From: "a/old.go", To: "b/new.go"}}
	original.ParseErrors = []FileError{{Path: "bin.dat", Code: "PARSE_ERROR", Message: "binary content"}}
	original.Finish()

	if original.RunID == "" {
		t.Fatal("run id should be assigned")
	}
	if err := original.Save(tmpDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, summaryFile)); err != nil {
		t.Fatalf("summary file was not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, summaryFile+".tmp")); !os.IsNotExist(err) {
		t.Error("temporary file should not remain")
	}

	loaded, err := LoadLastRun(tmpDir)
	if err != nil {
		t.Fatalf("LoadLastRun failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected non-nil summary")
	}
	if loaded.RunID != original.RunID {
		t.Errorf("RunID: got %s, want %s", loaded.RunID, original.RunID)
	}
	if !loaded.StartedAt.Equal(original.StartedAt) {
		t.Errorf("StartedAt: got %v, want %v", loaded.StartedAt, original.StartedAt)
	}
	if !loaded.Force || loaded.FilesParsed != 3 || loaded.FilesScanned != 50 {
		t.Errorf("counters not round-tripped: %+v", loaded)
	}
	if len(loaded.Renames) != 1 || loaded.Renames[0].To != "b/new.go" {
		t.Errorf("Renames: got %+v", loaded.Renames)
	}
	if len(loaded.ParseErrors) != 1 || loaded.ParseErrors[0].Code != "PARSE_ERROR" {
		t.Errorf("ParseErrors: got %+v", loaded.ParseErrors)
	}
}

func TestLoadLastRun_VersionMismatch(t *testing.T) {
	tmpDir := t.TempDir()
	data := `{"version": 999, "run_id": "old"}`
	if err := os.WriteFile(filepath.Join(tmpDir, summaryFile), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadLastRun(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Error("expected nil summary for version mismatch")
	}
}

func TestLoadLastRun_Corrupt(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, summaryFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLastRun(tmpDir); err == nil {
		t.Error("expected parse error for corrupt summary")
	}
}

func TestNoChanges(t *testing.T) {
	s := NewRunSummary(false)
	s.FilesScanned = 10
	s.FilesTouched = 2
	if !s.NoChanges() {
		t.Error("scan and touch alone should not count as changes")
	}
	s.SymbolsDeleted = 1
	if s.NoChanges() {
		t.Error("deletions are changes")
	}
}

func TestCheckFreshness(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		summary   *RunSummary
		wantFresh bool
		reason    string
	}{
		{"no summary", nil, false, "no index run"},
		{"recent", &RunSummary{StartedAt: now.Add(-10 * time.Minute)}, true, ""},
		{"old", &RunSummary{StartedAt: now.Add(-72 * time.Hour)}, false, "3 days old"},
		{"interrupted", &RunSummary{StartedAt: now.Add(-time.Minute), Interrupted: true}, false, "interrupted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.summary.CheckFreshness(now)
			if got.Fresh != tt.wantFresh {
				t.Errorf("Fresh = %v, want %v", got.Fresh, tt.wantFresh)
			}
			if !strings.Contains(got.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", got.Reason, tt.reason)
			}
		})
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
		{24 * time.Hour, "1 day"},
		{72 * time.Hour, "3 days"},
	}
	for _, tt := range tests {
		if got := humanDuration(tt.d); got != tt.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
