package http

import (
	"net/http"
)

// Input size limits. The query string carries this server's entire
// request surface — uri, start, rule, first/last, title — and the uri
// value is an arbitrary upstream feed URL, so it gets generous
// headroom while still cutting off garbage long before a handler
// parses it.
const (
	maxQueryLength = 8192
	maxPathLength  = 2048
	maxBodyBytes   = 10 << 20
)

// InputValidation rejects oversized request inputs before any handler
// work happens.
func InputValidation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.RawQuery) > maxQueryLength {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"query string too large"}`))
				return
			}

			if len(r.URL.Path) > maxPathLength {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestURITooLong)
				_, _ = w.Write([]byte(`{"error":"URI too long"}`))
				return
			}

			// Backstop only; the routes here are GETs with no body.
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

			next.ServeHTTP(w, r)
		})
	}
}
