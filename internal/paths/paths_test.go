package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "api", "handler.go")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("package api"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath: %v", err)
	}
	if got != "src/api/handler.go" {
		t.Errorf("got %q, want src/api/handler.go", got)
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()
	if !IsWithinRepo(filepath.Join(root, "a.go"), root) {
		t.Error("a.go should be within repo")
	}
	if IsWithinRepo(filepath.Join(filepath.Dir(root), "other.go"), root) {
		t.Error("sibling path should be outside repo")
	}
}

func TestStatePaths(t *testing.T) {
	root := "/repo"
	tests := map[string]string{
		DBPath(root):       filepath.Join("/repo", ".cix", "index.db"),
		ConfigPath(root):   filepath.Join("/repo", ".cix", "config.json"),
		LastRunPath(root):  filepath.Join("/repo", ".cix", "last-run.json"),
		IndexLogPath(root): filepath.Join("/repo", ".cix", "logs", "index.log"),
		ModulesPath(root):  filepath.Join("/repo", "MODULES.toml"),
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestJoinRepoPath(t *testing.T) {
	got := JoinRepoPath("/repo", "docs\\guide.md")
	if got != filepath.Join("/repo", "docs", "guide.md") {
		t.Errorf("got %q", got)
	}
}
