// Package metrics holds the Prometheus collectors of the catalog service.
// Collectors register with the default registry, which HTTPFace serves at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
)

var (
	// QueriesTotal counts query requests by dialect and outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Total number of query requests",
		},
		[]string{"dialect", "outcome"},
	)
	// BackendDuration is the latency of backend executions.
	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_backend_duration_seconds",
			Help:    "Backend query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dialect"},
	)
	// BackendErrorsTotal counts failed backend executions.
	BackendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_backend_errors_total",
			Help: "Total number of failed backend executions",
		},
		[]string{"dialect"},
	)
	// SegmentsPublished counts reply segments published.
	SegmentsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_segments_published_total",
			Help: "Total number of reply segments published",
		},
	)
	// CacheLookups counts segment cache lookups by result (hit or miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Total number of segment cache lookups",
		},
		[]string{"result"},
	)
	// CacheEntries is the number of segments held in the cache.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_cache_entries",
			Help: "Number of segments in the segment cache",
		},
	)
	// HTTPRequestsTotal counts data requests served over HTTP by status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP data requests",
		},
		[]string{"status"},
	)
)

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}
