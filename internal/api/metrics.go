package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	results  *prometheus.HistogramVec
}

// NewMetrics registers the request and result collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cix_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cix_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"route"}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cix_query_results",
			Help:    "Number of results returned per verb.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 250, 500},
		}, []string{"verb"}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.results,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the collectors for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
