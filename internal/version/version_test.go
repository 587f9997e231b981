package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() { Version, Commit = origVersion, origCommit }()

	tests := []struct {
		commit string
		want   string
	}{
		{"unknown", "0.9.0"},
		{"abc", "0.9.0"},
		{"1234567", "0.9.0"},
		{"12345678", "0.9.0 (1234567)"},
		{"abc1234567890", "0.9.0 (abc1234)"},
	}
	for _, tt := range tests {
		Version, Commit = "0.9.0", tt.commit
		if got := Info(); got != tt.want {
			t.Errorf("Info() with commit %q = %q, want %q", tt.commit, got, tt.want)
		}
	}
}

func TestFull(t *testing.T) {
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	defer func() { Version, Commit, BuildDate = origVersion, origCommit, origBuildDate }()

	Version, Commit, BuildDate = "1.2.3", "abcdef123456", "2026-01-15"
	got := Full()
	for _, part := range []string{"cix 1.2.3", "commit: abcdef123456", "built:  2026-01-15", runtime.Version()} {
		if !strings.Contains(got, part) {
			t.Errorf("Full() = %q, want to contain %q", got, part)
		}
	}
	if n := strings.Count(got, "\n"); n != 3 {
		t.Errorf("Full() has %d line breaks, want 3", n)
	}
}

func TestDefaultVersionIsSemver(t *testing.T) {
	if parts := strings.Split(Version, "."); len(parts) != 3 {
		t.Errorf("Version %q doesn't appear to be semver", Version)
	}
}
