// Package metrics holds the Prometheus registry for the replay
// engine: generic HTTP transport metrics plus the domain counters —
// replay requests by outcome, upstream fetch results and latency,
// reschedule durations, notice rows appended, feeds tracked, and
// poller sweep timings. Everything registers with the default
// registry and is served from /metrics.
package metrics
