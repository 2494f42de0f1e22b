// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Business metrics track replay-engine-specific operations
var (
	// FeedsTrackedTotal tracks total number of distinct feeds in the store
	FeedsTrackedTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeds_tracked_total",
			Help: "Total number of distinct feeds tracked in the store",
		},
	)

	// ReplayRequestsTotal counts /replay requests by outcome
	ReplayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_requests_total",
			Help: "Total number of /replay requests",
		},
		[]string{"outcome"}, // fresh_304, fetched, error
	)

	// RescheduleDuration measures time spent walking the rule iterator
	// and assigning replay slots for one request.
	RescheduleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reschedule_duration_seconds",
			Help:    "Time taken to compute replay slot assignments",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	// UpstreamFetchDuration measures time to fetch an upstream feed.
	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_fetch_duration_seconds",
			Help:    "Time taken to fetch an upstream feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"result"}, // success, not_modified, error
	)

	// UpstreamFetchErrors counts upstream fetch failures by kind.
	UpstreamFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetch_errors_total",
			Help: "Total number of upstream feed fetch errors",
		},
		[]string{"kind"},
	)

	// NoticesAppendedTotal counts new CachedEntry rows appended to the
	// notice history across all feeds.
	NoticesAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notices_appended_total",
			Help: "Total number of notice history rows appended",
		},
	)

	// AutodiscoveryAttemptsTotal counts /summary autodiscovery fallback
	// attempts by result.
	AutodiscoveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autodiscovery_attempts_total",
			Help: "Total number of feed autodiscovery fallback attempts",
		},
		[]string{"result"}, // found, not_found
	)

	// PollerSweepDuration measures one full background poll sweep across
	// every tracked feed.
	PollerSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poller_sweep_duration_seconds",
			Help:    "Time taken to sweep every tracked feed",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
