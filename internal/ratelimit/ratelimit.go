// Package ratelimit bounds concurrent upstream fetches per origin, so
// a burst of /replay requests against the same podcast host can't turn
// into a thundering herd against that host.
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"podreplay/internal/fetcher"
)

// PerOrigin hands out a token-bucket limiter per URL host, sized
// uniformly for every origin seen.
type PerOrigin struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a PerOrigin limiter allowing rps sustained requests per
// second per origin, with burst headroom above that.
func New(rps float64, burst int) *PerOrigin {
	return &PerOrigin{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Limiter returns the token bucket for uri's host, creating it on
// first sight. Malformed URIs or those with no host share a single
// fallback bucket rather than bypassing the limit.
func (p *PerOrigin) Limiter(uri string) *rate.Limiter {
	origin := originOf(uri)

	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[origin]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.limiters[origin] = l
	}
	return l
}

// upstream is the subset of fetcher.Fetcher LimitedFetcher wraps.
type upstream interface {
	Fetch(ctx context.Context, uri, ifNoneMatch string) (*fetcher.Result, error)
}

// LimitedFetcher wraps an upstream fetcher so every call first waits
// for its origin's token bucket, throttling the replay/summary
// pipelines' fan-out against any single upstream host.
type LimitedFetcher struct {
	Upstream upstream
	Limits   *PerOrigin
}

// Fetch waits for uri's origin bucket before delegating to the
// wrapped upstream fetcher. Returns ctx.Err() if the wait is
// cancelled before a token becomes available.
func (f *LimitedFetcher) Fetch(ctx context.Context, uri, ifNoneMatch string) (*fetcher.Result, error) {
	if err := f.Limits.Limiter(uri).Wait(ctx); err != nil {
		return nil, err
	}
	return f.Upstream.Fetch(ctx, uri, ifNoneMatch)
}

func originOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
