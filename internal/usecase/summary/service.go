// Package summary orchestrates the /summary endpoint: fetch a feed (or
// a page pointing at one), summarize it, and fall back to HTML
// autodiscovery when the fetched body isn't a feed at all.
package summary

import (
	"bytes"
	"context"
	"net/url"

	"podreplay/internal/autodiscovery"
	"podreplay/internal/entity"
	"podreplay/internal/fetcher"
	"podreplay/internal/observability/metrics"
	"podreplay/internal/summarize"
)

// feedContentTypes are the Content-Type prefixes treated as "probably
// a feed, don't bother scanning for autodiscovery links".
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/xml",
	"text/xml",
}

// Upstream is the subset of fetcher.Fetcher the service depends on.
type Upstream interface {
	Fetch(ctx context.Context, uri, ifNoneMatch string) (*fetcher.Result, error)
}

// Service serves /summary requests.
type Service struct {
	Upstream Upstream
}

// New builds a summary Service.
func New(upstream Upstream) *Service {
	return &Service{Upstream: upstream}
}

// Result is what Summarize hands back on success.
type Result struct {
	URI         string
	ETag        string
	NotModified bool
	Summary     entity.FeedSummary
}

// Summarize fetches uri and produces its FeedSummary, falling back to
// HTML link-rel autodiscovery when the fetched body doesn't parse as a
// feed (e.g. uri pointed at a show's webpage rather than its feed).
func (s *Service) Summarize(ctx context.Context, uri, ifNoneMatch string) (*Result, error) {
	result, err := s.Upstream.Fetch(ctx, uri, ifNoneMatch)
	if err != nil {
		return nil, err
	}
	if result.NotModified {
		return &Result{URI: uri, ETag: result.ETag, NotModified: true}, nil
	}

	fs, err := summarize.Summarize(bytes.NewReader(result.Body))
	if err == nil {
		return &Result{URI: uri, ETag: result.ETag, Summary: fs}, nil
	}

	if isFeedContentType(result.ContentType) {
		return nil, err
	}

	discovered, ok := s.attemptAutodiscovery(ctx, uri, result.Body)
	metrics.RecordAutodiscoveryAttempt(ok)
	if !ok {
		return nil, err
	}
	return discovered, nil
}

func (s *Service) attemptAutodiscovery(ctx context.Context, origin string, body []byte) (*Result, bool) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, false
	}

	candidate, found := autodiscovery.DiscoverFeedURL(body, base)
	if !found {
		return nil, false
	}

	result, err := s.Upstream.Fetch(ctx, candidate, "")
	if err != nil || result.NotModified {
		return nil, false
	}

	fs, err := summarize.Summarize(bytes.NewReader(result.Body))
	if err != nil {
		return nil, false
	}

	return &Result{URI: candidate, ETag: result.ETag, Summary: fs}, true
}

func isFeedContentType(contentType string) bool {
	for _, prefix := range feedContentTypes {
		if len(contentType) >= len(prefix) && contentType[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
