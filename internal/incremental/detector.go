package incremental

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/crypto/blake2b"

	"cix/internal/grammar"
	"cix/internal/storage"
)

// Directories never descended into
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".cix":         true,
	"vendor":       true,
	"node_modules": true,
	".cache":       true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
}

// LanguageResolver names the language of a repo-relative path, "" when the
// file is neither code nor documentation.
type LanguageResolver interface {
	LanguageFor(relPath string) string
}

// Scan is the result of one detection pass.
type Scan struct {
	Changes  []ChangedFile
	Scanned  int // Indexable files seen on disk
	Skipped  int // Indexable files left out (excluded, oversize, unreadable)
	Warnings []string
}

// ChangeDetector detects file changes since the last run
type ChangeDetector struct {
	repoRoot string
	state    *storage.FileStateRepository
	langs    LanguageResolver
	config   *Config
	logger   *slog.Logger
	ignore   *ignore.GitIgnore
}

// NewChangeDetector creates a new change detector
func NewChangeDetector(repoRoot string, state *storage.FileStateRepository, langs LanguageResolver, config *Config, logger *slog.Logger) *ChangeDetector {
	if config == nil {
		config = DefaultConfig()
	}
	d := &ChangeDetector{
		repoRoot: repoRoot,
		state:    state,
		langs:    langs,
		config:   config,
		logger:   logger,
	}
	if config.FollowGitignore {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(repoRoot, ".gitignore"))
		if err == nil {
			d.ignore = gi
		} else if !os.IsNotExist(err) {
			logger.Warn("ignoring unreadable .gitignore", "error", err)
		}
	}
	return d
}

// DetectChanges walks the repository and classifies every file against its
// recorded state. With force every present file is reported as modified.
func (d *ChangeDetector) DetectChanges(ctx context.Context, force bool) (*Scan, error) {
	recorded, err := d.state.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load index state: %w", err)
	}

	scan := &Scan{}
	seen := make(map[string]bool)
	err = filepath.WalkDir(d.repoRoot, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == d.repoRoot {
				return err
			}
			scan.Warnings = append(scan.Warnings, fmt.Sprintf("skipping %s: %v", path, err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == d.repoRoot {
			return nil
		}

		relPath, err := filepath.Rel(d.repoRoot, path)
		if err != nil {
			return nil //nolint:nilerr // outside the root, cannot happen under WalkDir
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if skipDirs[entry.Name()] || d.isExcluded(relPath) || d.isIgnored(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		lang := d.langs.LanguageFor(relPath)
		if lang == "" || (!d.config.IndexDocs && grammar.IsDoc(relPath)) {
			return nil
		}
		if d.isExcluded(relPath) || d.isIgnored(relPath, false) {
			scan.Skipped++
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			scan.Skipped++
			scan.Warnings = append(scan.Warnings, fmt.Sprintf("skipping %s: %v", relPath, err))
			return nil
		}
		if d.config.MaxFileBytes > 0 && info.Size() > d.config.MaxFileBytes {
			scan.Skipped++
			scan.Warnings = append(scan.Warnings, fmt.Sprintf("skipping %s: %d bytes exceeds limit", relPath, info.Size()))
			return nil
		}

		scan.Scanned++
		seen[relPath] = true
		mtime := info.ModTime().UnixNano()
		prev, known := recorded[relPath]
		if known && !force && prev.Mtime == mtime && prev.Size == info.Size() {
			return nil
		}

		fingerprint, err := Fingerprint(path)
		if err != nil {
			scan.Skipped++
			scan.Warnings = append(scan.Warnings, fmt.Sprintf("skipping %s: %v", relPath, err))
			return nil
		}

		change := ChangedFile{
			Path:        relPath,
			Fingerprint: fingerprint,
			Mtime:       mtime,
			Size:        info.Size(),
			Language:    lang,
		}
		switch {
		case !known:
			change.ChangeType = ChangeAdded
		case force || prev.Fingerprint != fingerprint:
			change.ChangeType = ChangeModified
		default:
			change.ChangeType = ChangeTouched
		}
		scan.Changes = append(scan.Changes, change)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	for path, prev := range recorded {
		if !seen[path] {
			scan.Changes = append(scan.Changes, ChangedFile{
				Path:        path,
				ChangeType:  ChangeDeleted,
				Fingerprint: prev.Fingerprint,
				Language:    prev.Language,
			})
		}
	}

	if d.config.DetectRenames {
		scan.Changes = pairRenames(scan.Changes)
	}
	sort.Slice(scan.Changes, func(i, j int) bool {
		return scan.Changes[i].Path < scan.Changes[j].Path
	})
	return scan, nil
}

// pairRenames folds a deleted file and an added file into one rename when
// their fingerprint is shared by no other added or deleted file.
func pairRenames(changes []ChangedFile) []ChangedFile {
	added := make(map[string][]int)
	deleted := make(map[string][]int)
	for i, c := range changes {
		switch c.ChangeType {
		case ChangeAdded:
			added[c.Fingerprint] = append(added[c.Fingerprint], i)
		case ChangeDeleted:
			if c.Fingerprint != "" {
				deleted[c.Fingerprint] = append(deleted[c.Fingerprint], i)
			}
		}
	}

	drop := make(map[int]bool)
	for fp, dels := range deleted {
		adds := added[fp]
		if len(dels) != 1 || len(adds) != 1 {
			continue
		}
		a, del := adds[0], dels[0]
		changes[a].ChangeType = ChangeRenamed
		changes[a].OldPath = changes[del].Path
		drop[del] = true
	}
	if len(drop) == 0 {
		return changes
	}

	out := changes[:0]
	for i, c := range changes {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}

// isExcluded checks a slash-separated relative path against config excludes.
// A plain directory pattern such as "generated" excludes everything below it.
func (d *ChangeDetector) isExcluded(relPath string) bool {
	for _, pattern := range d.config.Excludes {
		pattern = filepath.ToSlash(pattern)
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
		dir := strings.TrimSuffix(pattern, "/")
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
	}
	return false
}

func (d *ChangeDetector) isIgnored(relPath string, isDir bool) bool {
	if d.ignore == nil {
		return false
	}
	if d.ignore.MatchesPath(relPath) {
		return true
	}
	return isDir && d.ignore.MatchesPath(relPath+"/")
}

// Fingerprint returns the hex blake2b-256 digest of a file's content.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read-only

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
