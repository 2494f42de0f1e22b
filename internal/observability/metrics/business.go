package metrics

import "time"

// RecordReplayRequest records the outcome of a /replay request.
// outcome should be one of "fresh_304", "fetched", or "error".
func RecordReplayRequest(outcome string) {
	ReplayRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordRescheduleDuration records the time spent assigning replay
// slots for one request.
func RecordRescheduleDuration(duration time.Duration) {
	RescheduleDuration.Observe(duration.Seconds())
}

// RecordUpstreamFetch records the duration and outcome of a fetch
// against an upstream feed.
func RecordUpstreamFetch(result string, duration time.Duration) {
	UpstreamFetchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordUpstreamFetchError records an upstream fetch failure, keyed by
// its sentinel error kind (e.g. "upstream_fetch_failed", "not_a_feed").
func RecordUpstreamFetchError(kind string) {
	UpstreamFetchErrors.WithLabelValues(kind).Inc()
}

// RecordNoticesAppended records how many new notice-history rows a
// diff produced.
func RecordNoticesAppended(count int) {
	if count <= 0 {
		return
	}
	NoticesAppendedTotal.Add(float64(count))
}

// RecordAutodiscoveryAttempt records whether a /summary autodiscovery
// fallback found a usable feed link.
func RecordAutodiscoveryAttempt(found bool) {
	result := "not_found"
	if found {
		result = "found"
	}
	AutodiscoveryAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordPollerSweep records the duration of one full background sweep.
func RecordPollerSweep(duration time.Duration) {
	PollerSweepDuration.Observe(duration.Seconds())
}

// UpdateFeedsTrackedTotal updates the gauge of distinct feeds tracked
// in the store. Call this periodically from the poller.
func UpdateFeedsTrackedTotal(count int) {
	FeedsTrackedTotal.Set(float64(count))
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
