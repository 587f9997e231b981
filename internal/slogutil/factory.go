package slogutil

import (
	"io"
	"log/slog"

	"cix/internal/config"
	"cix/internal/paths"
)

// NewIndexLogger returns a logger that writes to console and to the rotating
// index log under .cix/logs. The returned closer must be closed after the run.
// If the log file cannot be opened the console logger is returned alone.
func NewIndexLogger(repoRoot string, cfg *config.Config, console slog.Handler) (*slog.Logger, io.Closer) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	maxSize := ParseSize(cfg.Logging.MaxSize)
	rf, err := OpenRotatingFile(paths.IndexLogPath(repoRoot), maxSize, cfg.Logging.MaxBackups)
	if err != nil {
		l := slog.New(console)
		l.Warn("index log unavailable", "error", err)
		return l, io.NopCloser(nil)
	}

	file := NewFormatHandler(rf, cfg.Logging.Format, LevelFromString(cfg.Logging.Level))
	return NewTeeLogger(console, file), rf
}
