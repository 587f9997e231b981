package incremental

import (
	"context"
	"time"

	"cix/internal/index"
	"cix/internal/watcher"
)

// RunFunc receives the outcome of every run made in watch mode.
type RunFunc func(s *index.RunSummary, err error)

// Watch runs once, then again after every debounced batch of file events,
// until ctx is done. Runs never overlap; events arriving during a run
// schedule exactly one follow-up run.
func (i *Indexer) Watch(ctx context.Context, debounce time.Duration, onRun RunFunc) error {
	trigger := make(chan struct{}, 1)

	cfg := watcher.DefaultConfig()
	cfg.DebounceMs = int(debounce / time.Millisecond)
	cfg.IgnorePatterns = append(cfg.IgnorePatterns, i.config.Excludes...)
	w := watcher.New(i.repoRoot, cfg, i.logger, func(events []watcher.Event) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop() //nolint:errcheck // shutting down

	run := func() {
		s, err := i.Run(ctx, Options{})
		if onRun != nil {
			onRun(s, err)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			run()
		}
	}
}
