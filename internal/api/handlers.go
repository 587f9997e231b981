package api

import (
	"net/http"
	"time"

	"cix/internal/envelope"
	"cix/internal/query"
	"cix/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Source    string    `json:"source"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Source:    s.engine.Source(),
	}, http.StatusOK)
}

// respond writes a list-shaped answer and records its size.
func respond[T any](s *Server, w http.ResponseWriter, verb string, res *query.Result[T], err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	s.metrics.results.WithLabelValues(verb).Observe(float64(res.Meta.Total))
	WriteJSON(w, envelope.Result(s.env, res), http.StatusOK)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Stats(r.Context())
	respond(s, w, "stats", res, err)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	includeFiles, err := QueryParamBool(r, "include_files")
	if err != nil {
		WriteError(w, err)
		return
	}
	q := r.URL.Query()
	res, err := s.engine.List(r.Context(), query.ListOptions{
		Type:         q.Get("type"),
		Layer:        q.Get("layer"),
		Domain:       q.Get("domain"),
		Category:     q.Get("category"),
		File:         q.Get("file"),
		IncludeFiles: includeFiles != nil && *includeFiles,
		Limit:        limit,
		Offset:       offset,
	})
	respond(s, w, "list", res, err)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Get(r.Context(), r.URL.Query().Get("id"))
	respond(s, w, "get", res, err)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := QueryParamInt(r, "limit", 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	q := r.URL.Query()
	res, err := s.engine.Search(r.Context(), query.SearchOptions{
		Query: q.Get("q"),
		Type:  q.Get("type"),
		Layer: q.Get("layer"),
		Limit: limit,
	})
	respond(s, w, "search", res, err)
}

func (s *Server) handleTraverse(w http.ResponseWriter, r *http.Request) {
	depth, err := QueryParamInt(r, "depth", defaultDepth)
	if err != nil {
		WriteError(w, err)
		return
	}
	maxNodes, err := QueryParamInt(r, "max_nodes", 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	res, err := s.engine.Traverse(r.Context(), query.TraverseOptions{
		Root:      r.URL.Query().Get("id"),
		Depth:     depth,
		Direction: r.URL.Query().Get("direction"),
		Refs:      QueryParamList(r, "ref"),
		MaxNodes:  maxNodes,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	s.metrics.results.WithLabelValues("traverse").Observe(float64(res.Meta.NodeCount))
	WriteJSON(w, s.env.Graph(res), http.StatusOK)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	limit, err := QueryParamInt(r, "limit", 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	res, err := s.engine.Hotspots(r.Context(), query.HotspotOptions{
		Layer: r.URL.Query().Get("layer"),
		Type:  r.URL.Query().Get("type"),
		Limit: limit,
	})
	respond(s, w, "hotspots", res, err)
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Impact(r.Context(), query.ImpactOptions{Target: r.URL.Query().Get("target")})
	respond(s, w, "impact", res, err)
}

func (s *Server) lineageOptions(r *http.Request) (query.LineageOptions, error) {
	limit, offset, err := page(r)
	if err != nil {
		return query.LineageOptions{}, err
	}
	complete, err := QueryParamBool(r, "complete")
	if err != nil {
		return query.LineageOptions{}, err
	}
	return query.LineageOptions{
		Complete: complete,
		Query:    r.URL.Query().Get("q"),
		Limit:    limit,
		Offset:   offset,
	}, nil
}

func (s *Server) handleLineageList(w http.ResponseWriter, r *http.Request) {
	opts, err := s.lineageOptions(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	res, err := s.engine.LineageList(r.Context(), opts)
	respond(s, w, "lineage_list", res, err)
}

func (s *Server) handleLineageSearch(w http.ResponseWriter, r *http.Request) {
	opts, err := s.lineageOptions(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	res, err := s.engine.LineageSearch(r.Context(), opts)
	respond(s, w, "lineage_search", res, err)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Categories(r.Context())
	respond(s, w, "categories", res, err)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Content(r.Context(), r.URL.Query().Get("id"))
	respond(s, w, "content", res, err)
}
