package query

import (
	"context"
	"sort"
	"strings"

	"cix/internal/errors"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// Match types, strongest first.
const (
	MatchExact     = "exact"
	MatchPrefix    = "prefix"
	MatchQualified = "qualified"
	MatchFTS       = "fts"
)

// SearchOptions configures Search.
type SearchOptions struct {
	Query string
	// Type and Layer narrow results after ranking.
	Type  string
	Layer string
	Limit int
}

// SearchHit is one ranked search result.
type SearchHit struct {
	symbols.Symbol
	Score     float64 `json:"score"`
	MatchType string  `json:"match_type"`
}

// Search ranks symbols against a query in tiers: exact name, name prefix,
// qualified-name containment and finally full text. The full-text tier
// only runs when the earlier tiers found fewer than limit symbols. Each id
// appears once, carrying its best score.
func (e *Engine) Search(ctx context.Context, opts SearchOptions) (*Result[[]SearchHit], error) {
	q := strings.TrimSpace(opts.Query)
	if q == "" {
		return nil, errors.NewValidationError("query", "search query is required")
	}
	limit, _, err := e.page(opts.Limit, 0)
	if err != nil {
		return nil, err
	}
	typ, err := parseType(opts.Type)
	if err != nil {
		return nil, err
	}
	layer, err := parseLayer(opts.Layer)
	if err != nil {
		return nil, err
	}
	keep := func(s *symbols.Symbol) bool {
		if s.Type == symbols.TypeFile && typ != symbols.TypeFile {
			return false
		}
		return (typ == "" || s.Type == typ) && (layer == "" || s.Layer == layer)
	}

	sc := e.cfg.Scores
	var (
		hits     []SearchHit
		warnings []string
	)
	add := func(syms []symbols.Symbol, score float64, match string) {
		for i := range syms {
			if keep(&syms[i]) {
				hits = append(hits, SearchHit{Symbol: syms[i], Score: score, MatchType: match})
			}
		}
	}

	// Earlier tiers over-fetch so filtering does not starve them.
	fetch := limit * 2
	exact, err := e.symbols.ByName(ctx, q, fetch)
	if err != nil {
		return nil, err
	}
	add(exact, sc.Exact, MatchExact)

	prefix, err := e.symbols.ByPrefix(ctx, q, fetch)
	if err != nil {
		return nil, err
	}
	add(prefix, sc.Prefix, MatchPrefix)

	qual, err := e.symbols.ByQualified(ctx, q, fetch)
	if err != nil {
		return nil, err
	}
	add(qual, sc.Qualified, MatchQualified)

	hits = dedupByID(hits)
	if len(hits) < limit {
		fts, err := e.ftsTier(ctx, q, fetch)
		if err != nil {
			e.logger.Warn("Full-text search failed", "query", q, "error", err.Error())
			warnings = append(warnings, WarnFTSPartial)
		}
		for _, h := range fts {
			if keep(&h.Symbol) {
				hits = append(hits, h)
			}
		}
		hits = dedupByID(hits)
	}

	sortHits(hits)
	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []SearchHit{}
	}
	return &Result[[]SearchHit]{Data: hits, Meta: e.meta(total, limit, 0, warnings...)}, nil
}

// ftsTier runs the full-text tier and scales bm25 relevance into the
// configured score band. The best hit gets the top of the band.
func (e *Engine) ftsTier(ctx context.Context, q string, limit int) ([]SearchHit, error) {
	raw, err := e.db.FTSSearch(ctx, q, limit)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	ids := make([]string, len(raw))
	for i, h := range raw {
		ids[i] = h.ID
	}
	syms, err := e.symbols.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	lo, hi := raw[0].Relevance, raw[0].Relevance
	for _, h := range raw {
		lo = min(lo, h.Relevance)
		hi = max(hi, h.Relevance)
	}
	out := make([]SearchHit, 0, len(raw))
	for _, h := range raw {
		s, ok := syms[h.ID]
		if !ok {
			continue
		}
		out = append(out, SearchHit{
			Symbol:    *s,
			Score:     scaleRelevance(h, lo, hi, e.cfg.Scores.FTSMin, e.cfg.Scores.FTSMax),
			MatchType: MatchFTS,
		})
	}
	return out, nil
}

func scaleRelevance(h storage.FTSHit, lo, hi, floor, ceil float64) float64 {
	if hi <= lo {
		return ceil
	}
	return floor + (h.Relevance-lo)/(hi-lo)*(ceil-floor)
}

// dedupByID collapses hits sharing an id. The survivor keeps the highest
// score with its match type, and the provenance of every duplicate.
func dedupByID(hits []SearchHit) []SearchHit {
	idx := make(map[string]int, len(hits))
	out := hits[:0:0]
	for _, h := range hits {
		i, seen := idx[h.ID]
		if !seen {
			idx[h.ID] = len(out)
			h.Sources = append([]string(nil), h.Sources...)
			out = append(out, h)
			continue
		}
		best := &out[i]
		if h.Score > best.Score {
			sources := best.Sources
			*best = h
			best.Sources = sources
		}
		for _, src := range h.Sources {
			best.AddSource(src)
		}
	}
	return out
}

func sortHits(hits []SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Name != hits[j].Name {
			return hits[i].Name < hits[j].Name
		}
		return hits[i].ID < hits[j].ID
	})
}
