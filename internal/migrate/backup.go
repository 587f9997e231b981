package migrate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	backupPrefix = "index-"
	backupSuffix = ".db.zst"
)

// backupStore writes a zstd-compressed copy of the store at dbPath into
// dir and prunes all but the newest keep backups. Returns the backup path.
func backupStore(dbPath, dir string, keep int, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating backups directory: %w", err)
	}

	src, err := os.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("opening store for backup: %w", err)
	}
	defer src.Close() //nolint:errcheck // read-only

	name := backupPrefix + now.UTC().Format("20060102T150405.000000000Z") + backupSuffix
	dst := filepath.Join(dir, name)
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("compressing backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("compressing backup: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing backup: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing backup: %w", err)
	}

	if keep > 0 {
		pruneBackups(dir, keep)
	}
	return dst, nil
}

// listBackups returns backup files in dir, oldest first. The timestamp in
// the name sorts lexically.
func listBackups(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, backupPrefix) && strings.HasSuffix(n, backupSuffix) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}

func pruneBackups(dir string, keep int) {
	backups := listBackups(dir)
	for len(backups) > keep {
		_ = os.Remove(backups[0])
		backups = backups[1:]
	}
}

// RestoreBackup decompresses a backup over dbPath. The store must not be
// open.
func RestoreBackup(backupPath, dbPath string) error {
	in, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("opening backup: %w", err)
	}
	defer in.Close() //nolint:errcheck // read-only

	dec, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	defer dec.Close()

	tmp := dbPath + ".restoring"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	if _, err := io.Copy(out, dec); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("decompressing backup: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	removeSidecars(dbPath)
	return os.Rename(tmp, dbPath)
}

// removeSidecars deletes the WAL and shared-memory files of a closed store
// so they cannot be replayed against a replaced database file.
func removeSidecars(dbPath string) {
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		_ = os.Remove(dbPath + suffix)
	}
}
