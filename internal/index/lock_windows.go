//go:build windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cix/internal/errors"
)

const lockFile = "index.lock"

// Lock represents an exclusive lock on the index.
// Windows has no flock; exclusivity comes from O_EXCL creation of the lock file.
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
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.NewStoreUnavailableError("index is locked by another process", err).
				WithDetails(map[string]string{"lock": path})
		}
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
}
