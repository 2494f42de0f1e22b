package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreplay/internal/entity"
	"podreplay/internal/fetcher"
)

type fakeStore struct {
	feeds   map[string]*entity.FeedMeta
	nextID  int64
	entries map[int64][]entity.CachedEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{feeds: map[string]*entity.FeedMeta{}, entries: map[int64][]entity.CachedEntry{}}
}

func (f *fakeStore) GetByURI(_ context.Context, uri string) (*entity.FeedMeta, error) {
	m, ok := f.feeds[uri]
	if !ok {
		return nil, entity.ErrFeedNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) Upsert(_ context.Context, uri string, fetchedAt time.Time, etag *string) (int64, error) {
	m, ok := f.feeds[uri]
	if !ok {
		f.nextID++
		m = &entity.FeedMeta{ID: f.nextID, URI: uri, FirstFetched: fetchedAt}
		f.feeds[uri] = m
	}
	m.LastFetched = fetchedAt
	m.ETag = etag
	return m.ID, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]entity.FeedMeta, error) {
	out := make([]entity.FeedMeta, 0, len(f.feeds))
	for _, m := range f.feeds {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) LatestByFeed(_ context.Context, feedID int64) (map[string]entity.CachedEntry, error) {
	out := make(map[string]entity.CachedEntry)
	for _, e := range f.entries[feedID] {
		existing, ok := out[e.ID]
		if !ok || e.Noticed.After(existing.Noticed) {
			out[e.ID] = e
		}
	}
	return out, nil
}

func (f *fakeStore) AppendBatch(_ context.Context, rows []entity.CachedEntry) error {
	for _, r := range rows {
		f.entries[r.FeedID] = append(f.entries[r.FeedID], r)
	}
	return nil
}

func (f *fakeStore) History(_ context.Context, feedID int64) ([]entity.CachedEntry, error) {
	out := make([]entity.CachedEntry, len(f.entries[feedID]))
	copy(out, f.entries[feedID])
	return out, nil
}

type fakeUpstream struct {
	result *fetcher.Result
	err    error
}

func (f *fakeUpstream) Fetch(_ context.Context, _, _ string) (*fetcher.Result, error) {
	return f.result, f.err
}

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Original Title</title>
<item>
<guid>ep-1</guid>
<title>Episode 1</title>
<pubDate>Mon, 10 Nov 2014 21:00:00 GMT</pubDate>
<enclosure url="http://example.com/1.mp3" type="audio/mpeg"/>
</item>
</channel></rss>`

func TestReplay_FirstFetchSchedulesImmediately(t *testing.T) {
	store := newFakeStore()
	upstream := &fakeUpstream{result: &fetcher.Result{
		Body:        []byte(sampleFeed),
		ContentType: "application/rss+xml",
		ETag:        `"v1"`,
		FinalURL:    "http://example.com/feed.xml",
	}}
	svc := New(store, upstream)

	start := time.Date(2014, 11, 10, 21, 0, 0, 0, time.UTC)
	now := time.Date(2014, 11, 11, 0, 0, 0, 0, time.UTC)
	resp, err := svc.Replay(context.Background(), Request{
		URI:   "http://example.com/feed.xml",
		Start: start,
		Rule:  "1d",
		Now:   now,
	})
	require.NoError(t, err)
	assert.False(t, resp.NotModified)
	assert.Contains(t, string(resp.Body), "ep-1")
	assert.Contains(t, resp.ETag, `"v1"`)
	assert.NotEmpty(t, store.entries)
}

func TestReplay_FreshCompositeEtagShortCircuits304(t *testing.T) {
	store := newFakeStore()
	upstream := &fakeUpstream{err: assert.AnError}
	svc := New(store, upstream)

	now := time.Date(2014, 11, 11, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	resp, err := svc.Replay(context.Background(), Request{
		URI:         "http://example.com/feed.xml",
		Start:       now,
		Rule:        "1d",
		Now:         now,
		IfNoneMatch: `"` + future.UTC().Format(time.RFC3339) + `|v1"`,
	})
	require.NoError(t, err)
	assert.True(t, resp.NotModified)
}

func TestReplay_UpstreamNotModifiedRecomputesExpiry(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2014, 11, 10, 21, 0, 0, 0, time.UTC)
	feedID, _ := store.Upsert(context.Background(), "http://example.com/feed.xml", start, strPtr(`"v1"`))
	store.entries[feedID] = []entity.CachedEntry{
		{ID: "ep-1", FeedID: feedID, Noticed: start, Published: &start},
	}

	upstream := &fakeUpstream{result: &fetcher.Result{NotModified: true, ETag: `"v1"`}}
	svc := New(store, upstream)

	now := time.Date(2014, 11, 11, 0, 0, 0, 0, time.UTC)
	resp, err := svc.Replay(context.Background(), Request{
		URI:         "http://example.com/feed.xml",
		Start:       start,
		Rule:        "1d",
		Now:         now,
		IfNoneMatch: `"` + start.Format(time.RFC3339) + `|v1"`,
	})
	require.NoError(t, err)
	assert.True(t, resp.NotModified)
	assert.Contains(t, resp.ETag, "v1")
}

func TestValidateNow_RejectsFarFuture(t *testing.T) {
	serverClock := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	err := ValidateNow(serverClock.AddDate(2, 0, 0), serverClock)
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)
}

func TestValidateNow_AcceptsWithinWindow(t *testing.T) {
	serverClock := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	err := ValidateNow(serverClock.AddDate(0, 1, 0), serverClock)
	assert.NoError(t, err)
}

func strPtr(s string) *string { return &s }
