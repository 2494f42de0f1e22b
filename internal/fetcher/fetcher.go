// Package fetcher is the HTTP facade the replay use case fetches
// upstream feeds through: a bounded-timeout conditional GET wrapped in
// the same retry and circuit-breaker stack the rest of the module's
// resilience layer uses.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"podreplay/internal/entity"
	"podreplay/internal/resilience/circuitbreaker"
	"podreplay/internal/resilience/retry"
)

// Timeout bounds the wall-clock budget of a single upstream fetch,
// including any retries.
const Timeout = 30 * time.Second

// Result is what the facade hands back to the replay use case.
type Result struct {
	Body        []byte
	ContentType string
	ETag        string
	FinalURL    string
	NotModified bool
}

// Fetcher performs conditional GETs against upstream feeds.
type Fetcher struct {
	client    *http.Client
	breaker   *circuitbreaker.CircuitBreaker
	retryCfg  retry.Config
	userAgent string
}

// New builds a Fetcher that identifies itself with userAgent.
func New(userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: Timeout},
		breaker:   circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryCfg:  retry.FeedFetchConfig(),
		userAgent: userAgent,
	}
}

// Fetch retrieves uri, sending ifNoneMatch as If-None-Match when
// non-empty. A 304 upstream response surfaces as Result.NotModified
// rather than as an error. Any other failure to reach or read upstream
// is wrapped in entity.ErrFetchUpstream.
func (f *Fetcher) Fetch(ctx context.Context, uri, ifNoneMatch string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	var result *Result
	retryErr := retry.WithBackoff(ctx, f.retryCfg, func() error {
		cbResult, err := f.breaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, uri, ifNoneMatch)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("uri", uri),
					slog.String("state", f.breaker.State().String()))
			}
			return err
		}
		result = cbResult.(*Result)
		return nil
	})

	if retryErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", entity.ErrFetchUpstream, uri, retryErr)
	}
	return result, nil
}

func (f *Fetcher) doFetch(ctx context.Context, uri, ifNoneMatch string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	if ifNoneMatch != "" {
		req.Header.Set("If-None-Match", ifNoneMatch)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	finalURL := uri
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode == http.StatusNotModified {
		return &Result{NotModified: true, ETag: resp.Header.Get("ETag"), FinalURL: finalURL}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/rss+xml"
	}

	return &Result{
		Body:        body,
		ContentType: contentType,
		ETag:        resp.Header.Get("ETag"),
		FinalURL:    finalURL,
	}, nil
}
