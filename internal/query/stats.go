package query

import (
	"context"
	"time"

	"cix/internal/project"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// Stats summarizes the store.
type Stats struct {
	TotalSymbols int                        `json:"total_symbols"`
	CodeSymbols  int                        `json:"code_symbols"`
	DocSymbols   int                        `json:"doc_symbols"`
	FileSymbols  int                        `json:"file_symbols"`
	Files        int                        `json:"files"`
	ByType       map[symbols.SymbolType]int `json:"by_type"`
	ByLayer      map[symbols.Layer]int      `json:"by_layer"`
	Edges        int                        `json:"edges"`
	EdgesByRef   map[symbols.RefType]int    `json:"edges_by_ref"`
	Lineage      int                        `json:"lineage_records"`
	LastRun      *LastRun                   `json:"last_run,omitempty"`
	MigratedFrom string                     `json:"migrated_from,omitempty"`
	Project      *project.Info              `json:"project,omitempty"`
}

// LastRun identifies the most recent index run recorded in the store.
type LastRun struct {
	RunID string     `json:"run_id"`
	At    *time.Time `json:"at,omitempty"`
}

// Stats reports symbol totals by domain, type and layer, edge counts by
// type, the lineage record count and the last index run.
func (e *Engine) Stats(ctx context.Context) (*Result[*Stats], error) {
	counts, err := e.symbols.Counts(ctx)
	if err != nil {
		return nil, err
	}
	byRef, err := e.edges.CountByRef(ctx)
	if err != nil {
		return nil, err
	}
	lin, err := e.lineage.Count(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalSymbols: counts.Total,
		CodeSymbols:  counts.ByDomain[symbols.DomainCode],
		DocSymbols:   counts.ByDomain[symbols.DomainDoc],
		FileSymbols:  counts.FileSymbols,
		Files:        counts.Files,
		ByType:       counts.ByType,
		ByLayer:      counts.ByLayer,
		EdgesByRef:   byRef,
		Lineage:      lin,
	}
	for _, n := range byRef {
		st.Edges += n
	}

	if id, err := e.db.GetMeta(ctx, storage.MetaLastRun); err != nil {
		return nil, err
	} else if id != "" {
		st.LastRun = &LastRun{RunID: id}
		at, err := e.db.GetMeta(ctx, storage.MetaLastRunAt)
		if err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339, at); perr == nil {
			st.LastRun.At = &t
		}
	}
	if st.MigratedFrom, err = e.db.GetMeta(ctx, storage.MetaMigratedFrom); err != nil {
		return nil, err
	}

	st.Project = e.project

	return &Result[*Stats]{Data: st, Meta: e.meta(st.TotalSymbols, 0, 0)}, nil
}
