package incremental

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"cix/internal/errors"
	"cix/internal/index"
	"cix/internal/lineage"
	"cix/internal/paths"
	"cix/internal/project"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// RunObserver is told about every finished run.
type RunObserver interface {
	ObserveRun(ctx context.Context, s *index.RunSummary) error
}

// Indexer orchestrates incremental index runs
type Indexer struct {
	repoRoot  string
	db        *storage.DB
	extractor *symbols.Extractor
	detector  *ChangeDetector
	updater   *IndexUpdater
	lineage   *lineage.Deriver
	lineages  *storage.LineageRepository
	config    *Config
	observers []RunObserver
	logger    *slog.Logger
}

// NewIndexer creates an indexer for repoRoot writing to db.
func NewIndexer(repoRoot string, db *storage.DB, extractor *symbols.Extractor, config *Config, logger *slog.Logger) *Indexer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Indexer{
		repoRoot:  repoRoot,
		db:        db,
		extractor: extractor,
		detector:  NewChangeDetector(repoRoot, storage.NewFileStateRepository(db), extractor, config, logger),
		updater:   NewIndexUpdater(db, logger),
		lineage:   lineage.NewDeriver(db, logger),
		lineages:  storage.NewLineageRepository(db),
		config:    config,
		logger:    logger,
	}
}

// Observe registers an observer for finished runs.
func (i *Indexer) Observe(o RunObserver) {
	i.observers = append(i.observers, o)
}

// Run performs one index run under the single-writer lock. Cancelling ctx
// stops the run between files; the returned summary is marked interrupted
// and the cancellation error is returned alongside it.
func (i *Indexer) Run(ctx context.Context, opts Options) (*index.RunSummary, error) {
	cixDir, err := paths.EnsureCixDir(i.repoRoot)
	if err != nil {
		return nil, err
	}
	lock, err := index.AcquireLock(cixDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	summary := index.NewRunSummary(opts.Force)
	i.loadSCIP(summary)

	runErr := i.run(ctx, opts, summary)
	if ctx.Err() != nil {
		summary.Interrupted = true
		runErr = ctx.Err()
	}
	summary.Finish()

	// The summary is written even for interrupted runs so freshness checks
	// can report them.
	if err := summary.Save(cixDir); err != nil {
		i.logger.Warn("failed to write run summary", "error", err)
	}
	if runErr == nil {
		if err := i.updater.RecordRun(context.WithoutCancel(ctx), summary.RunID, summary.StartedAt); err != nil {
			i.logger.Warn("failed to record run", "error", err)
		}
	}
	for _, o := range i.observers {
		if err := o.ObserveRun(context.WithoutCancel(ctx), summary); err != nil {
			i.logger.Warn("run observer failed", "error", err)
		}
	}

	i.logger.Info("Index run complete",
		"runId", summary.RunID,
		"filesScanned", summary.FilesScanned,
		"filesParsed", summary.FilesParsed,
		"filesDeleted", summary.FilesDeleted,
		"filesRenamed", summary.FilesRenamed,
		"symbolsUpserted", summary.SymbolsChanged,
		"symbolsDeleted", summary.SymbolsDeleted,
		"parseErrors", len(summary.ParseErrors),
		"interrupted", summary.Interrupted,
		"duration", summary.Duration().String(),
	)
	return summary, runErr
}

func (i *Indexer) run(ctx context.Context, opts Options, summary *index.RunSummary) error {
	scan, err := i.detector.DetectChanges(ctx, opts.Force)
	if err != nil {
		return err
	}
	summary.FilesScanned = scan.Scanned
	summary.FilesSkipped = scan.Skipped
	summary.Warnings = append(summary.Warnings, scan.Warnings...)

	var (
		toParse []ChangedFile
		touched []ChangedFile
		deleted []ChangedFile
	)
	for _, c := range scan.Changes {
		switch {
		case c.ChangeType == ChangeDeleted:
			deleted = append(deleted, c)
		case c.ChangeType == ChangeTouched:
			touched = append(touched, c)
		case c.NeedsParse():
			toParse = append(toParse, c)
		}
	}
	i.logger.Debug("Detected file changes",
		"parse", len(toParse),
		"touched", len(touched),
		"deleted", len(deleted),
	)

	total := &ApplyStats{}
	for _, c := range deleted {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats, err := i.updater.DeleteFile(ctx, c.Path)
		if err != nil {
			return err
		}
		total.add(stats)
		summary.FilesDeleted++
	}

	if err := i.updater.TouchFiles(ctx, touched); err != nil {
		return err
	}
	summary.FilesTouched = len(touched)

	parseErr := i.parseAndApply(ctx, toParse, summary, total)

	summary.SymbolsChanged = total.Upserted
	summary.SymbolsDeleted = total.Deleted
	summary.EdgesWritten = total.EdgesWritten
	summary.EdgesRemoved = total.EdgesRemoved
	if parseErr != nil {
		return parseErr
	}

	return i.refreshLineage(ctx, total.MappingChanged, summary)
}

// parseAndApply extracts files in parallel and applies them from this
// goroutine only, so the store sees a single writer.
func (i *Indexer) parseAndApply(ctx context.Context, files []ChangedFile, summary *index.RunSummary, total *ApplyStats) error {
	if len(files) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.config.Workers)
	results := make(chan FileResult, i.config.Workers)

	var waitErr error
	go func() {
		defer close(results)
		for _, c := range files {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := i.extract(gctx, c)
				select {
				case results <- res:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		waitErr = g.Wait()
	}()

	var applyErr error
	for res := range results {
		if applyErr != nil {
			continue
		}
		if err := i.apply(ctx, res, summary, total); err != nil {
			applyErr = err
			cancel()
		}
	}
	if applyErr != nil {
		return applyErr
	}
	return waitErr
}

func (i *Indexer) extract(ctx context.Context, c ChangedFile) FileResult {
	res := FileResult{Change: c}
	src, err := os.ReadFile(filepath.Join(i.repoRoot, filepath.FromSlash(c.Path)))
	if err != nil {
		res.Err = errors.NewParseError(c.Path, err.Error())
		return res
	}
	res.Extraction, res.Err = i.extractor.ExtractFile(ctx, c.Path, src)
	return res
}

func (i *Indexer) apply(ctx context.Context, res FileResult, summary *index.RunSummary, total *ApplyStats) error {
	c := res.Change
	if res.Err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.ParseErrors = append(summary.ParseErrors, index.FileError{
			Path:    c.Path,
			Code:    string(errors.CodeOf(res.Err)),
			Message: res.Err.Error(),
		})
		i.logger.Warn("parse failed", "file", c.Path, "error", res.Err)
	}
	if res.Extraction == nil {
		return nil
	}

	stats, err := i.updater.ApplyFile(ctx, res)
	if err != nil {
		return err
	}
	total.add(stats)

	if c.ChangeType == ChangeRenamed {
		summary.FilesRenamed++
		summary.Renames = append(summary.Renames, index.RenamePair{From: c.OldPath, To: c.Path})
	} else {
		summary.FilesParsed++
	}
	for _, w := range res.Extraction.Warnings {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %s", c.Path, w))
	}
	for _, s := range res.Extraction.Symbols {
		for _, src := range s.Sources {
			if src == symbols.SourceSCIP {
				summary.SCIPEnriched++
				break
			}
		}
	}
	return nil
}

// refreshLineage recomputes lineage when a mapping edge changed or no
// lineage has been derived yet.
func (i *Indexer) refreshLineage(ctx context.Context, mappingChanged bool, summary *index.RunSummary) error {
	if !mappingChanged {
		n, err := i.lineages.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
	n, err := i.lineage.Recompute(ctx)
	if err != nil {
		return fmt.Errorf("recomputing lineage: %w", err)
	}
	summary.LineageRecomputed = true
	summary.LineageRecords = n
	return nil
}

// loadSCIP attaches the configured SCIP index to the extractor when present.
func (i *Indexer) loadSCIP(summary *index.RunSummary) {
	if i.config.SCIPPath == "" {
		return
	}
	path := i.config.SCIPPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(i.repoRoot, path)
	}
	if _, err := os.Stat(path); err != nil {
		if lang, _, ok := project.DetectLanguage(i.repoRoot); ok {
			if cmd := project.SCIPIndexerCommand(lang); cmd != "" {
				i.logger.Debug("no SCIP index, definitions come from the parser", "generate", cmd)
			}
		}
		return
	}
	start := time.Now()
	idx, err := symbols.LoadSCIP(path)
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("scip index unavailable: %v", err))
		return
	}
	i.extractor.WithSCIP(idx)
	i.logger.Debug("SCIP index loaded", "documents", idx.Documents(), "took", time.Since(start).String())
}
