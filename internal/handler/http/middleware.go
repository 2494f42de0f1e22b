package http

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"podreplay/internal/handler/http/requestid"
	"podreplay/internal/handler/http/respond"
	"podreplay/internal/handler/http/responsewriter"

	"go.opentelemetry.io/otel/trace"
)

// Logging emits one structured line per finished request. The query
// string is included because on this server it is the whole request:
// /replay's uri, start, and rule all travel as parameters, so a log
// line without the query would say nothing about which feed was
// replayed. The request and trace IDs are attached for correlation
// with the OTel spans around the same request.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := responsewriter.Wrap(w)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			span := trace.SpanFromContext(r.Context())

			logger.Info("request completed",
				slog.String("request_id", requestid.FromContext(r.Context())),
				slog.String("trace_id", span.SpanContext().TraceID().String()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.Header.Get("User-Agent")),
				slog.Int("status", wrapped.StatusCode()),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.Duration("duration", duration),
				slog.String("duration_ms", fmt.Sprintf("%.2f", duration.Seconds()*1000)),
			)
		})
	}
}

// Recover converts a handler panic into a sanitized 500 and a log
// entry with the stack, so one malformed feed can't take the whole
// server down with it.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				respond.SafeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
				logger.Error("panic recovered",
					slog.String("request_id", requestid.FromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LimitRequestBody caps request body size. Both endpoints are GETs
// with no meaningful body, so anything beyond the cap is noise.
func LimitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter applies a per-client-IP sliding window. Replay responses
// carry long Expires horizons, so a well-behaved podcast client asks
// rarely; a client hammering /replay is either misconfigured or
// abusive, and per-IP throttling here keeps it from burning upstream
// fetch budget for everyone else.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	seen      map[string][]time.Time
	lastSweep time.Time
}

// sweepEvery bounds how often the limiter walks its whole map to drop
// idle IPs.
const sweepEvery = 10 * time.Minute

// NewRateLimiter allows limit requests per client IP within window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		window:    window,
		seen:      make(map[string][]time.Time),
		lastSweep: time.Now(),
	}
}

// Limit rejects over-limit requests with 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(extractIP(r), time.Now()) {
			respond.SafeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow records the request if the IP is under its limit. The IP's
// timestamp slice is pruned in place; the full map is swept at most
// once per sweepEvery so idle IPs don't accumulate forever.
func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= sweepEvery {
		rl.sweepLocked(now)
	}

	cutoff := now.Add(-rl.window)
	kept := rl.seen[ip][:0]
	for _, ts := range rl.seen[ip] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rl.limit {
		rl.seen[ip] = kept
		return false
	}
	rl.seen[ip] = append(kept, now)
	return true
}

// sweepLocked drops IPs whose every timestamp has aged out. Caller
// holds mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	rl.lastSweep = now
	cutoff := now.Add(-rl.window * 2)
	for ip, stamps := range rl.seen {
		stale := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(rl.seen, ip)
		}
	}
}

// extractIP resolves the client IP, trusting X-Forwarded-For first
// (this server is expected to sit behind a reverse proxy), then
// X-Real-IP, then RemoteAddr.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP returns the first address of a comma-separated list,
// or "" when that first element isn't a valid IP. Later elements are
// deliberately not consulted: they are proxy hops, not the client.
func parseFirstIP(s string) string {
	first, _, _ := strings.Cut(s, ",")
	ip := net.ParseIP(strings.TrimSpace(first))
	if ip == nil {
		return ""
	}
	return ip.String()
}
