// Package observability groups the monitoring infrastructure both
// binaries share: structured logging, Prometheus metrics,
// OpenTelemetry tracing, and SLO tracking.
//
// Subpackages:
//   - logging: slog construction and context propagation
//   - metrics: Prometheus registry plus the replay-domain recorders
//     (upstream fetches, reschedule timings, notice appends, sweeps)
//   - tracing: server spans around /replay and /summary
//   - slo: availability/latency/error-rate gauges fed from the live
//     request stream
package observability
