package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the process-wide tracer every span in this module hangs
// off: the HTTP middleware's server spans, replay.Replay's pipeline
// span, and the poller's per-sweep span.
var tracer = otel.Tracer("podreplay")

// GetTracer returns the shared tracer.
func GetTracer() trace.Tracer {
	return tracer
}
