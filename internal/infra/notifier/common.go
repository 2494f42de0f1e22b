package notifier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"podreplay/internal/poller"
)

// RateLimitError represents a 429 response from a webhook service,
// carrying the server-requested backoff.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx response other than 429. Not retryable:
// the payload or webhook URL is wrong and will stay wrong.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx response. Retryable.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// isRetryableError reports whether a failed webhook delivery is worth
// another attempt. 5xx and transport-level failures are; 4xx are not
// (429 is handled separately via RateLimitError's RetryAfter).
func isRetryableError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false
	}
	return true
}

// summarizeReport renders a report as the plain-text line shared by
// every channel's fallback text.
func summarizeReport(report poller.Report) string {
	return fmt.Sprintf("podreplay sweep: %d/%d feeds refreshed in %s (%d unreachable)",
		report.Refreshed, report.FeedsTotal, report.Duration.Round(time.Millisecond), len(report.Failures))
}

// failureLines renders up to limit failed feeds, one per line, with a
// trailing count when the list was cut short.
func failureLines(failures []poller.FeedFailure, limit int) string {
	if len(failures) == 0 {
		return ""
	}
	var b strings.Builder
	shown := failures
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, f := range shown {
		fmt.Fprintf(&b, "• %s — %s\n", f.URI, f.Reason)
	}
	if rest := len(failures) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "…and %d more\n", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}
