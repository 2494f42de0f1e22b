package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreplay/internal/fetcher"
)

type fakeUpstream struct {
	calls int
}

func (f *fakeUpstream) Fetch(_ context.Context, uri, _ string) (*fetcher.Result, error) {
	f.calls++
	return &fetcher.Result{FinalURL: uri}, nil
}

func TestLimitedFetcher_DelegatesAfterWaiting(t *testing.T) {
	up := &fakeUpstream{}
	lf := &LimitedFetcher{Upstream: up, Limits: New(100, 5)}

	result, err := lf.Fetch(context.Background(), "https://feeds.example.com/show.xml", "")
	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, "https://feeds.example.com/show.xml", result.FinalURL)
}

func TestLimitedFetcher_CancelledContextStopsBeforeDelegating(t *testing.T) {
	up := &fakeUpstream{}
	lf := &LimitedFetcher{Upstream: up, Limits: New(1, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lf.Limits.Limiter("https://feeds.example.com/show.xml").Allow() // drain the single burst token
	_, err := lf.Fetch(ctx, "https://feeds.example.com/show.xml", "")
	assert.Error(t, err)
	assert.Equal(t, 0, up.calls)
}

func TestLimiter_SameOriginSharesBucket(t *testing.T) {
	p := New(10, 5)
	a := p.Limiter("https://feeds.example.com/show1.xml")
	b := p.Limiter("https://feeds.example.com/show2.xml")
	assert.Same(t, a, b)
}

func TestLimiter_DifferentOriginsGetDifferentBuckets(t *testing.T) {
	p := New(10, 5)
	a := p.Limiter("https://feeds.example.com/show.xml")
	b := p.Limiter("https://other.example.com/show.xml")
	assert.NotSame(t, a, b)
}

func TestLimiter_MalformedURIsShareFallbackBucket(t *testing.T) {
	p := New(10, 5)
	a := p.Limiter("not a url")
	b := p.Limiter("also not a url")
	assert.Same(t, a, b)
}

func TestLimiter_AllowsUpToBurst(t *testing.T) {
	p := New(1, 3)
	l := p.Limiter("https://feeds.example.com/show.xml")
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow())
	}
	assert.False(t, l.Allow())
}
