package summary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreplay/internal/fetcher"
)

type scriptedUpstream struct {
	byURI map[string]*fetcher.Result
	err   error
}

func (s *scriptedUpstream) Fetch(_ context.Context, uri, _ string) (*fetcher.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.byURI[uri]
	if !ok {
		return nil, assert.AnError
	}
	return r, nil
}

const feedBody = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Show</title>
<item><guid>1</guid><title>Ep</title><pubDate>Mon, 10 Nov 2014 21:00:00 GMT</pubDate>
<enclosure url="http://e/1.mp3" type="audio/mpeg"/></item>
</channel></rss>`

const htmlWithFeedLink = `<html><head>
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
</head><body>show page</body></html>`

func TestSummarize_DirectFeed(t *testing.T) {
	upstream := &scriptedUpstream{byURI: map[string]*fetcher.Result{
		"http://example.com/feed.xml": {Body: []byte(feedBody), ContentType: "application/rss+xml"},
	}}
	svc := New(upstream)

	res, err := svc.Summarize(context.Background(), "http://example.com/feed.xml", "")
	require.NoError(t, err)
	assert.False(t, res.NotModified)
	require.Len(t, res.Summary.Items, 1)
	assert.Equal(t, "1", res.Summary.Items[0].ID)
}

func TestSummarize_AutodiscoversFromHTMLPage(t *testing.T) {
	upstream := &scriptedUpstream{byURI: map[string]*fetcher.Result{
		"http://example.com/show":     {Body: []byte(htmlWithFeedLink), ContentType: "text/html"},
		"http://example.com/feed.xml": {Body: []byte(feedBody), ContentType: "application/rss+xml"},
	}}
	svc := New(upstream)

	res, err := svc.Summarize(context.Background(), "http://example.com/show", "")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/feed.xml", res.URI)
	require.Len(t, res.Summary.Items, 1)
}

func TestSummarize_NotAFeedNoAutodiscoveryLink(t *testing.T) {
	upstream := &scriptedUpstream{byURI: map[string]*fetcher.Result{
		"http://example.com/show": {Body: []byte("<html><body>nothing here</body></html>"), ContentType: "text/html"},
	}}
	svc := New(upstream)

	_, err := svc.Summarize(context.Background(), "http://example.com/show", "")
	assert.Error(t, err)
}

func TestSummarize_NotModifiedShortCircuits(t *testing.T) {
	upstream := &scriptedUpstream{byURI: map[string]*fetcher.Result{
		"http://example.com/feed.xml": {NotModified: true, ETag: `"v1"`},
	}}
	svc := New(upstream)

	res, err := svc.Summarize(context.Background(), "http://example.com/feed.xml", `"v1"`)
	require.NoError(t, err)
	assert.True(t, res.NotModified)
}
