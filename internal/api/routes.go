package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cix/internal/version"
)

// verbs maps each query verb to its route.
var verbs = []struct {
	path, help string
}{
	{"/v1/stats", "Store totals and last index run"},
	{"/v1/list", "List symbols (type, layer, domain, category, file, limit, offset)"},
	{"/v1/get", "Get a symbol with edge counts (id)"},
	{"/v1/search", "Ranked search (q, type, layer, limit)"},
	{"/v1/traverse", "Graph traversal (id, depth, direction, ref, max_nodes)"},
	{"/v1/hotspots", "Symbols ranked by degree (layer, type, limit)"},
	{"/v1/impact", "Downstream impact of a column (target)"},
	{"/v1/lineage/list", "Lineage records (complete, limit, offset)"},
	{"/v1/lineage/search", "Lineage records by symbol name (q, complete, limit, offset)"},
	{"/v1/categories", "Symbol counts per category"},
	{"/v1/content", "Symbol body and span (id)"},
}

func knownRoute(path string) bool {
	switch path {
	case "/", "/health", "/metrics":
		return true
	}
	for _, v := range verbs {
		if v.path == path {
			return true
		}
	}
	return false
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	s.router.HandleFunc("GET /v1/stats", s.handleStats)
	s.router.HandleFunc("GET /v1/list", s.handleList)
	s.router.HandleFunc("GET /v1/get", s.handleGet)
	s.router.HandleFunc("GET /v1/search", s.handleSearch)
	s.router.HandleFunc("GET /v1/traverse", s.handleTraverse)
	s.router.HandleFunc("GET /v1/hotspots", s.handleHotspots)
	s.router.HandleFunc("GET /v1/impact", s.handleImpact)
	s.router.HandleFunc("GET /v1/lineage/list", s.handleLineageList)
	s.router.HandleFunc("GET /v1/lineage/search", s.handleLineageSearch)
	s.router.HandleFunc("GET /v1/categories", s.handleCategories)
	s.router.HandleFunc("GET /v1/content", s.handleContent)

	s.router.HandleFunc("GET /{$}", s.handleRoot)
}

// handleRoot lists the endpoints
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	endpoints := make([]string, 0, len(verbs)+2)
	endpoints = append(endpoints, "GET /health - Health check", "GET /metrics - Prometheus metrics")
	for _, v := range verbs {
		endpoints = append(endpoints, "GET "+v.path+" - "+v.help)
	}
	WriteJSON(w, map[string]interface{}{
		"name":      "cix HTTP API",
		"version":   version.Version,
		"endpoints": endpoints,
	}, http.StatusOK)
}
