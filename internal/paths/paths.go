package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DirName is the per-repository state directory.
const DirName = ".cix"

// CixDir returns <repoRoot>/.cix
func CixDir(repoRoot string) string {
	return filepath.Join(repoRoot, DirName)
}

// EnsureCixDir creates <repoRoot>/.cix if needed and returns it.
func EnsureCixDir(repoRoot string) (string, error) {
	dir := CixDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPath is the unified store file.
func DBPath(repoRoot string) string {
	return filepath.Join(CixDir(repoRoot), "index.db")
}

// ConfigPath is the JSON configuration file.
func ConfigPath(repoRoot string) string {
	return filepath.Join(CixDir(repoRoot), "config.json")
}

// GrammarOverridesPath is the optional TOML file extending the grammar registry.
func GrammarOverridesPath(repoRoot string) string {
	return filepath.Join(CixDir(repoRoot), "grammars.toml")
}

// ModulesPath is the optional category declaration file at the repo root.
func ModulesPath(repoRoot string) string {
	return filepath.Join(repoRoot, "MODULES.toml")
}

// LastRunPath holds the summary of the most recent index run.
func LastRunPath(repoRoot string) string {
	return filepath.Join(CixDir(repoRoot), "last-run.json")
}

// LogsDir holds rotating log files.
func LogsDir(repoRoot string) string {
	return filepath.Join(CixDir(repoRoot), "logs")
}

// IndexLogPath is the rotating index log.
func IndexLogPath(repoRoot string) string {
	return filepath.Join(LogsDir(repoRoot), "index.log")
}

// BackupsDir holds compressed store backups written by migrations.
func BackupsDir(repoRoot string) string {
	return filepath.Join(CixDir(repoRoot), "backups")
}

// MetricsPath is the default prometheus textfile.
func MetricsPath(repoRoot string) string {
	return filepath.Join(CixDir(repoRoot), "metrics.prom")
}

// CanonicalizePath converts an absolute path to a repo-relative slash path.
// Symlinks are resolved on both sides when possible.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRepoPath joins a repo root with a slash-separated relative path.
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(strings.ReplaceAll(canonicalPath, "\\", "/"), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
