// Package metrics exports index-run figures as a Prometheus textfile for
// the node_exporter textfile collector.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"cix/internal/index"
)

// Textfile records every finished run and rewrites the textfile.
type Textfile struct {
	path     string
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	lastRun     prometheus.Gauge
	duration    prometheus.Gauge
	files       *prometheus.GaugeVec
	symbols     *prometheus.GaugeVec
	edges       *prometheus.GaugeVec
	parseErrors prometheus.Gauge
	lineage     prometheus.Gauge
}

// NewTextfile creates an observer writing to path.
func NewTextfile(path string) *Textfile {
	t := &Textfile{
		path:     path,
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cix_index_runs_total",
			Help: "Index runs finished by this process, by outcome.",
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cix_index_last_run_timestamp_seconds",
			Help: "Start time of the most recent index run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cix_index_last_run_duration_seconds",
			Help: "Wall time of the most recent index run.",
		}),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cix_index_last_run_files",
			Help: "Files handled by the most recent run, by action.",
		}, []string{"action"}),
		symbols: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cix_index_last_run_symbols",
			Help: "Symbols written by the most recent run, by action.",
		}, []string{"action"}),
		edges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cix_index_last_run_edges",
			Help: "Edges written by the most recent run, by action.",
		}, []string{"action"}),
		parseErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cix_index_last_run_parse_errors",
			Help: "Files that failed to parse in the most recent run.",
		}),
		lineage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cix_lineage_records",
			Help: "Lineage records after the most recent recompute.",
		}),
	}
	t.registry.MustRegister(t.runs, t.lastRun, t.duration, t.files, t.symbols, t.edges, t.parseErrors, t.lineage)
	return t
}

// ObserveRun updates the collectors from s and rewrites the textfile.
func (t *Textfile) ObserveRun(_ context.Context, s *index.RunSummary) error {
	outcome := "ok"
	switch {
	case s.Interrupted:
		outcome = "interrupted"
	case len(s.ParseErrors) > 0:
		outcome = "partial"
	}
	t.runs.WithLabelValues(outcome).Inc()
	t.lastRun.Set(float64(s.StartedAt.Unix()))
	t.duration.Set(s.Duration().Seconds())

	t.files.WithLabelValues("scanned").Set(float64(s.FilesScanned))
	t.files.WithLabelValues("parsed").Set(float64(s.FilesParsed))
	t.files.WithLabelValues("skipped").Set(float64(s.FilesSkipped))
	t.files.WithLabelValues("touched").Set(float64(s.FilesTouched))
	t.files.WithLabelValues("deleted").Set(float64(s.FilesDeleted))
	t.files.WithLabelValues("renamed").Set(float64(s.FilesRenamed))
	t.symbols.WithLabelValues("upserted").Set(float64(s.SymbolsChanged))
	t.symbols.WithLabelValues("deleted").Set(float64(s.SymbolsDeleted))
	t.edges.WithLabelValues("written").Set(float64(s.EdgesWritten))
	t.edges.WithLabelValues("removed").Set(float64(s.EdgesRemoved))
	t.parseErrors.Set(float64(len(s.ParseErrors)))
	if s.LineageRecomputed {
		t.lineage.Set(float64(s.LineageRecords))
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(t.path, t.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
