package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cix/internal/config"
	"cix/internal/errors"
	"cix/internal/index"
	"cix/internal/lineage"
	"cix/internal/paths"
	"cix/internal/storage"
	"cix/internal/symbols"
)

const (
	defaultBatch  = 1000
	maxMismatches = 20
)

// Options controls one migration.
type Options struct {
	// From is the legacy directory holding symbols.jsonl and edges.jsonl.
	From string
	// Sample limits checksum verification to N evenly spaced records.
	// Zero falls back to the configured sample size; zero there means a
	// full pass.
	Sample int
	// NoBackup skips the compressed copy of the replaced store.
	NoBackup bool
}

// Report describes a completed migration.
type Report struct {
	From         string `json:"from"`
	Target       string `json:"target"`
	LegacyLines  int    `json:"legacy_lines"`
	Superseded   int    `json:"superseded"`
	Symbols      int    `json:"symbols"`
	Edges        int    `json:"edges"`
	Lineage      int    `json:"lineage_records"`
	Verification string `json:"verification"`
	Checked      int    `json:"checked"`
	Backup       string `json:"backup,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

// Mismatch is one record that differs between legacy source and the
// migrated store.
type Mismatch struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// Diagnostics is attached to every MigrationError.
type Diagnostics struct {
	Stage      string     `json:"stage"`
	From       string     `json:"from"`
	TempPath   string     `json:"temp_path,omitempty"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	Problems   []string   `json:"problems,omitempty"`
}

// Migrator builds the unified store from legacy data.
type Migrator struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewMigrator creates a migrator for the store of repoRoot.
func NewMigrator(repoRoot string, cfg *config.Config, logger *slog.Logger) *Migrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Migrator{repoRoot: repoRoot, cfg: cfg, logger: logger, now: time.Now}
}

// Migrate loads the legacy directory into a temporary database next to the
// store, verifies it and renames it over the store. Any failure, including
// cancellation, removes the temporary database and leaves the existing
// store untouched.
func (m *Migrator) Migrate(ctx context.Context, opts Options) (*Report, error) {
	start := m.now()
	if opts.From == "" {
		return nil, errors.NewValidationError("from", "legacy directory is required")
	}
	from, err := filepath.Abs(opts.From)
	if err != nil {
		return nil, errors.NewValidationError("from", err.Error())
	}
	if info, err := os.Stat(from); err != nil || !info.IsDir() {
		return nil, errors.NewNotFoundError("legacy directory", from)
	}

	cixDir, err := paths.EnsureCixDir(m.repoRoot)
	if err != nil {
		return nil, err
	}
	lock, err := index.AcquireLock(cixDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	diag := &Diagnostics{Stage: "load", From: from}
	legacy, err := LoadLegacy(ctx, from)
	if err != nil {
		return nil, errors.NewMigrationError("cannot read legacy index", err, diag)
	}

	target := paths.DBPath(m.repoRoot)
	tmp := fmt.Sprintf("%s.migrating-%s", target, uuid.NewString())
	diag.TempPath = tmp
	report := &Report{
		From:        from,
		Target:      target,
		LegacyLines: legacy.Lines,
		Superseded:  legacy.Superseded,
	}

	swapped := false
	defer func() {
		if !swapped {
			_ = os.Remove(tmp)
			removeSidecars(tmp)
		}
	}()

	if err := m.build(ctx, tmp, legacy, opts, report, diag); err != nil {
		return nil, errors.NewMigrationError("migration aborted, store unchanged", err, diag)
	}

	if ctx.Err() == nil && fileExists(target) && m.cfg.Migration.Backup && !opts.NoBackup {
		diag.Stage = "backup"
		if err := checkpointStore(ctx, target, m.logger); err != nil {
			return nil, errors.NewMigrationError("cannot checkpoint current store", err, diag)
		}
		backup, err := backupStore(target, paths.BackupsDir(m.repoRoot), m.cfg.Migration.KeepBackups, m.now())
		if err != nil {
			return nil, errors.NewMigrationError("cannot back up current store", err, diag)
		}
		report.Backup = backup
	}

	diag.Stage = "swap"
	if err := ctx.Err(); err != nil {
		return nil, errors.NewMigrationError("migration interrupted, store unchanged", err, diag)
	}
	removeSidecars(target)
	if err := os.Rename(tmp, target); err != nil {
		return nil, errors.NewMigrationError("cannot replace store", err, diag)
	}
	swapped = true

	report.DurationMs = time.Since(start).Milliseconds()
	m.logger.Info("Migration complete",
		"from", from,
		"symbols", report.Symbols,
		"edges", report.Edges,
		"lineageRecords", report.Lineage,
		"verification", report.Verification,
		"checked", report.Checked,
		"backup", report.Backup,
		"duration", time.Duration(report.DurationMs)*time.Millisecond,
	)
	return report, nil
}

func (m *Migrator) build(ctx context.Context, tmp string, legacy *Legacy, opts Options, report *Report, diag *Diagnostics) error {
	diag.Stage = "build"
	db, err := storage.Open(tmp, m.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := legacy.write(ctx, db, defaultBatch); err != nil {
		return err
	}

	n, err := lineage.NewDeriver(db, m.logger).Recompute(ctx)
	if err != nil {
		return err
	}
	report.Lineage = n

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := db.SetMetaTx(ctx, tx, storage.MetaMigratedFrom, report.From); err != nil {
			return err
		}
		return db.SetMetaTx(ctx, tx, storage.MetaMigratedAt, m.now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return err
	}

	diag.Stage = "verify"
	sample := opts.Sample
	if sample == 0 {
		sample = m.cfg.Migration.SampleSize
	}
	v := &verifier{db: db, legacy: legacy, diag: diag}
	if err := v.run(ctx, sample); err != nil {
		return err
	}
	report.Symbols = len(legacy.Symbols)
	report.Edges = len(legacy.Edges)
	report.Verification = v.mode
	report.Checked = v.checked

	if err := db.Checkpoint(ctx); err != nil {
		return err
	}
	return db.Close()
}

func checkpointStore(ctx context.Context, path string, logger *slog.Logger) error {
	db, err := storage.Open(path, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Checkpoint(ctx)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// verifier compares a migrated store against its legacy source.
type verifier struct {
	db      *storage.DB
	legacy  *Legacy
	diag    *Diagnostics
	mode    string
	checked int
}

func (v *verifier) mismatch(m Mismatch) {
	if len(v.diag.Mismatches) < maxMismatches {
		v.diag.Mismatches = append(v.diag.Mismatches, m)
	}
}

func (v *verifier) run(ctx context.Context, sample int) error {
	if err := v.counts(ctx); err != nil {
		return err
	}
	if err := v.checksums(ctx, sample); err != nil {
		return err
	}

	problems, err := v.db.IntegrityCheck(ctx)
	if err != nil {
		return err
	}
	if ftsErr := v.db.FTSIntegrityCheck(ctx); ftsErr != nil {
		problems = append(problems, "fts: "+ftsErr.Error())
	}
	if len(problems) > 0 {
		v.diag.Problems = problems
		return fmt.Errorf("integrity check failed: %d problems", len(problems))
	}
	return nil
}

func (v *verifier) counts(ctx context.Context) error {
	var symbolRows int
	if err := v.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols").Scan(&symbolRows); err != nil {
		return err
	}
	edgeRows, err := v.db.EdgeCount(ctx)
	if err != nil {
		return err
	}

	ok := true
	if symbolRows != len(v.legacy.Symbols) {
		v.mismatch(Mismatch{Kind: "symbol_count", Want: fmt.Sprint(len(v.legacy.Symbols)), Got: fmt.Sprint(symbolRows)})
		ok = false
	}
	if edgeRows != len(v.legacy.Edges) {
		v.mismatch(Mismatch{Kind: "edge_count", Want: fmt.Sprint(len(v.legacy.Edges)), Got: fmt.Sprint(edgeRows)})
		ok = false
	}
	if !ok {
		return fmt.Errorf("row counts differ")
	}
	return nil
}

// checksums compares every record, or sample evenly spaced records.
func (v *verifier) checksums(ctx context.Context, sample int) error {
	picked := sampleIndices(len(v.legacy.Symbols), sample)
	v.mode = "full"
	if len(picked) < len(v.legacy.Symbols) {
		v.mode = "sampled"
	}

	out := make(map[string][]symbols.Edge)
	for _, e := range v.legacy.Edges {
		out[e.SourceID] = append(out[e.SourceID], e.Edge)
	}

	syms := storage.NewSymbolRepository(v.db)
	edges := storage.NewEdgeRepository(v.db)
	failed := 0
	for start := 0; start < len(picked); start += defaultBatch {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := picked[start:min(start+defaultBatch, len(picked))]
		ids := make([]string, len(chunk))
		for i, idx := range chunk {
			ids[i] = v.legacy.Symbols[idx].ID
		}

		stored, err := syms.GetMany(ctx, ids)
		if err != nil {
			return err
		}
		storedEdges, err := edges.From(ctx, ids, nil)
		if err != nil {
			return err
		}
		storedOut := make(map[string][]symbols.Edge)
		for _, e := range storedEdges {
			storedOut[e.SourceID] = append(storedOut[e.SourceID], e.Edge)
		}

		for _, idx := range chunk {
			want := &v.legacy.Symbols[idx]
			v.checked++
			got, ok := stored[want.ID]
			if !ok {
				failed++
				v.mismatch(Mismatch{Kind: "missing", ID: want.ID, Want: "present", Got: "absent"})
				continue
			}
			wantSum := Checksum(want, out[want.ID])
			gotSum := Checksum(got, storedOut[want.ID])
			if wantSum != gotSum {
				failed++
				v.mismatch(Mismatch{Kind: "checksum", ID: want.ID, Want: wantSum, Got: gotSum})
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records differ from the legacy source", failed, v.checked)
	}
	return nil
}

// sampleIndices returns n indices when sample is zero or covers everything,
// otherwise sample indices spread evenly across [0, n).
func sampleIndices(n, sample int) []int {
	if sample <= 0 || sample >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, sample)
	for i := range out {
		out[i] = i * n / sample
	}
	return out
}
