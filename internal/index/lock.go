//go:build !windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"cix/internal/errors"
)

const lockFile = "index.lock"

// Lock represents an exclusive lock on the index.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the single-writer lock on the store in cixDir.
// Contention is reported as a retryable StoreUnavailable error.
func AcquireLock(cixDir string) (*Lock, error) {
	if err := os.MkdirAll(cixDir, 0755); err != nil {
		return nil, fmt.Errorf("creating .cix directory: %w", err)
	}

	path := filepath.Join(cixDir, lockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	// Try to acquire exclusive lock (non-blocking)
	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = file.Close()

		msg := "index is locked by another process"
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			msg = fmt.Sprintf("index is locked by another process (PID %s)", strings.TrimSpace(string(content)))
		}
		return nil, errors.NewStoreUnavailableError(msg, err).
			WithDetails(map[string]string{"lock": path})
	}

	// Write our PID to the lock file
	if err := file.Truncate(0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := file.Seek(0, 0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("seeking lock file: %w", err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	// Remove before unlocking so a waiting writer never sees our stale PID.
	_ = os.Remove(l.path)
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
