package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"podreplay/internal/pkg/config"
)

// PollerMetrics exposes Prometheus metrics for the sweep loop,
// embedding the shared ConfigMetrics for configuration fallback
// tracking.
type PollerMetrics struct {
	*config.ConfigMetrics

	// SweepRunsTotal counts sweeps by outcome ("success"/"failure").
	SweepRunsTotal *prometheus.CounterVec

	// SweepDurationSeconds is a histogram over full-sweep wall time.
	SweepDurationSeconds prometheus.Histogram

	// SweepFeedsRefreshedTotal counts feeds refreshed across all sweeps.
	SweepFeedsRefreshedTotal prometheus.Counter

	// SweepLastSuccessTimestamp is the Unix time of the last sweep that
	// completed without error.
	SweepLastSuccessTimestamp prometheus.Gauge
}

// NewPollerMetrics creates and auto-registers the poller metric set.
func NewPollerMetrics() *PollerMetrics {
	return &PollerMetrics{
		ConfigMetrics: config.NewConfigMetrics("poller"),

		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_sweep_runs_total",
			Help: "Total number of sweep runs by status (success/failure)",
		}, []string{"status"}),

		SweepDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "poller_sweep_run_duration_seconds",
			Help:    "Duration of full sweep runs in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		SweepFeedsRefreshedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "poller_sweep_feeds_refreshed_total",
			Help: "Total number of feeds refreshed across all sweep runs",
		}),

		SweepLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "poller_sweep_last_success_timestamp",
			Help: "Unix timestamp of the last successful sweep run",
		}),
	}
}

// RecordSweepRun increments the run counter for status ("success" or
// "failure").
func (m *PollerMetrics) RecordSweepRun(status string) {
	m.SweepRunsTotal.WithLabelValues(status).Inc()
}

// RecordSweepDuration observes one sweep's wall time in seconds.
func (m *PollerMetrics) RecordSweepDuration(seconds float64) {
	m.SweepDurationSeconds.Observe(seconds)
}

// RecordFeedsRefreshed adds the number of feeds refreshed by one sweep.
func (m *PollerMetrics) RecordFeedsRefreshed(count int) {
	m.SweepFeedsRefreshedTotal.Add(float64(count))
}

// RecordLastSuccess stamps the last-success gauge with the current
// time.
func (m *PollerMetrics) RecordLastSuccess() {
	m.SweepLastSuccessTimestamp.SetToCurrentTime()
}
