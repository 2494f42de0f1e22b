package http

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Timeout bounds one handler invocation end to end and answers 504
// when the budget runs out. A /replay request that blew its budget is
// almost always stuck on the upstream fetch; the deadline planted in
// the request context unblocks that fetch, and the guard below keeps
// the late handler from racing the 504 onto the wire.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()

			guarded := &guardedWriter{ResponseWriter: w}
			done := make(chan struct{})

			go func() {
				next.ServeHTTP(guarded, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if guarded.markTimedOut() {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					_, _ = w.Write([]byte(`{"error":"request timeout"}`))
				}
			}
		})
	}
}

// guardedWriter serializes the handler goroutine and the timeout arm
// onto one ResponseWriter: whichever commits first wins, the other's
// writes are dropped.
type guardedWriter struct {
	http.ResponseWriter

	mu       sync.Mutex
	timedOut bool
	written  bool
}

// markTimedOut flips the writer into timed-out mode and reports
// whether the 504 may still be written (i.e. the handler hadn't
// committed a response first).
func (g *guardedWriter) markTimedOut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timedOut = true
	return !g.written
}

func (g *guardedWriter) WriteHeader(statusCode int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timedOut || g.written {
		return
	}
	g.written = true
	g.ResponseWriter.WriteHeader(statusCode)
}

func (g *guardedWriter) Write(data []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !g.written {
		g.written = true
		g.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return g.ResponseWriter.Write(data)
}
