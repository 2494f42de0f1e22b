// Package tracing wraps the HTTP surface and the poller's sweep in
// OpenTelemetry spans. Middleware handles the server side (context
// extraction, X-Trace-Id echo, status attributes); GetTracer hands
// the shared tracer to internal call sites like the replay use case
// and the sweep loop.
package tracing
