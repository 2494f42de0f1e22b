// Package replay orchestrates one /replay request: conditional fetch,
// summarize, diff against the notice history, persist, reschedule, and
// rewrite — the control flow described for the replay endpoint.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"podreplay/internal/diff"
	"podreplay/internal/entity"
	"podreplay/internal/fetcher"
	"podreplay/internal/httpcache"
	"podreplay/internal/observability/metrics"
	"podreplay/internal/observability/tracing"
	"podreplay/internal/repository"
	"podreplay/internal/reschedule"
	"podreplay/internal/rewrite"
	"podreplay/internal/rule"
	"podreplay/internal/summarize"
)

// maxFutureNow bounds how far a caller-supplied now may sit beyond the
// server clock before the request is rejected as malformed.
const maxFutureNow = 365 * 24 * time.Hour

// caughtUpRefresh is the Expires horizon handed back when the
// rescheduler reports no unfilled slot (the backlog is fully drained
// and the feed is caught up to its native cadence) — there is no
// "next slot" to encode, so the response asks the client to recheck
// soon in case upstream publishes something new.
const caughtUpRefresh = 15 * time.Minute

// Upstream is the subset of fetcher.Fetcher the service depends on.
type Upstream interface {
	Fetch(ctx context.Context, uri, ifNoneMatch string) (*fetcher.Result, error)
}

// Service wires the pure core packages to a Store and an Upstream
// fetcher to serve /replay requests.
type Service struct {
	Store    repository.Store
	Upstream Upstream
}

// New builds a replay Service.
func New(store repository.Store, upstream Upstream) *Service {
	return &Service{Store: store, Upstream: upstream}
}

// Request is one parsed, already-validated /replay invocation.
type Request struct {
	URI         string
	Start       time.Time
	Rule        string
	Now         time.Time
	First       *time.Time
	Last        *time.Time
	Title       string
	Pretty      bool
	Private     bool
	IfNoneMatch string
}

// Response is what the HTTP layer writes back: either a 304 carrying
// only cache-validation headers, or a full body plus headers.
type Response struct {
	NotModified bool
	Body        []byte
	ContentType string
	ETag        string
	Expires     time.Time
}

// ValidateNow rejects a caller-supplied now more than 365 days beyond
// serverClock; anything further out is treated as a malformed request.
func ValidateNow(now, serverClock time.Time) error {
	if now.After(serverClock.Add(maxFutureNow)) {
		return fmt.Errorf("%w: now is more than 365 days beyond the server clock", entity.ErrInvalidRequest)
	}
	return nil
}

// Replay executes the full control flow for req.
func (s *Service) Replay(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "replay.Replay")
	defer span.End()

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if composite, ok := httpcache.Parse(req.IfNoneMatch); ok && composite.FreshFor(now) {
		metrics.RecordReplayRequest("fresh_304")
		return &Response{NotModified: true, ETag: req.IfNoneMatch, Expires: *composite.Expires}, nil
	}

	conditionalETag := ""
	if composite, ok := httpcache.Parse(req.IfNoneMatch); ok {
		conditionalETag = composite.ETag
	}

	existing, existingErr := s.Store.GetByURI(ctx, req.URI)
	if existingErr != nil && !errors.Is(existingErr, entity.ErrFeedNotFound) {
		metrics.RecordReplayRequest("error")
		return nil, existingErr
	}

	fetchStart := time.Now()
	result, err := s.Upstream.Fetch(ctx, req.URI, conditionalETag)
	fetchDuration := time.Since(fetchStart)
	if err != nil {
		metrics.RecordUpstreamFetch("error", fetchDuration)
		metrics.RecordReplayRequest("error")
		return nil, err
	}

	if result.NotModified {
		metrics.RecordUpstreamFetch("not_modified", fetchDuration)
		return s.replayUnchanged(ctx, req, now, existing, existingErr)
	}
	metrics.RecordUpstreamFetch("success", fetchDuration)

	resp, err := s.replayFetched(ctx, req, now, existing, existingErr, result)
	if err != nil {
		metrics.RecordReplayRequest("error")
		return nil, err
	}
	metrics.RecordReplayRequest("fetched")
	return resp, nil
}

// replayUnchanged handles the "upstream confirmed 304" branch: nothing
// new to diff or rewrite, but the expiry still needs recomputing since
// the backlog may have drained further purely due to the passage of
// time (a later slot passing cutoff can change the next-unfilled
// boundary even with no new history).
func (s *Service) replayUnchanged(ctx context.Context, req Request, now time.Time, existing *entity.FeedMeta, existingErr error) (*Response, error) {
	if existingErr != nil {
		return nil, fmt.Errorf("%w: upstream reported not-modified for an untracked feed", entity.ErrUnknown)
	}

	history, err := s.Store.History(ctx, existing.ID)
	if err != nil {
		return nil, err
	}

	_, boundary := s.reschedule(req, now, existing.FirstFetched, history)
	expires := expiresFor(boundary, now)

	upstreamETag := ""
	if existing.ETag != nil {
		upstreamETag = *existing.ETag
	}
	return &Response{NotModified: true, ETag: httpcache.Format(expires, upstreamETag), Expires: expires}, nil
}

// replayFetched handles the "got a fresh body" branch: persist the
// diff, reschedule against the complete history, and rewrite.
func (s *Service) replayFetched(ctx context.Context, req Request, now time.Time, existing *entity.FeedMeta, existingErr error, result *fetcher.Result) (*Response, error) {
	var etag *string
	if result.ETag != "" {
		etag = &result.ETag
	}
	feedID, err := s.Store.Upsert(ctx, req.URI, now, etag)
	if err != nil {
		return nil, err
	}

	feedFirstFetched := now
	if existingErr == nil {
		feedFirstFetched = existing.FirstFetched
	}

	summary, err := summarize.Summarize(bytes.NewReader(result.Body))
	if err != nil {
		return nil, err
	}

	cached, err := s.Store.LatestByFeed(ctx, feedID)
	if err != nil {
		return nil, err
	}

	rows := diff.Diff(summary, cached, feedID, now)
	if len(rows) > 0 {
		if err := s.Store.AppendBatch(ctx, rows); err != nil {
			return nil, err
		}
		metrics.RecordNoticesAppended(len(rows))
	}

	history, err := s.Store.History(ctx, feedID)
	if err != nil {
		return nil, err
	}

	schedule, boundary := s.reschedule(req, now, feedFirstFetched, history)

	body, err := rewrite.Rewrite(result.Body, schedule, rewrite.Options{
		MarkPrivate: req.Private,
		CustomTitle: req.Title,
		Pretty:      req.Pretty,
	})
	if err != nil {
		slog.Warn("feed rewrite failed", slog.String("uri", req.URI), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", entity.ErrWriteFeed, err)
	}

	expires := expiresFor(boundary, now)
	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/rss+xml"
	}

	return &Response{
		Body:        body,
		ContentType: contentType,
		ETag:        httpcache.Format(expires, result.ETag),
		Expires:     expires,
	}, nil
}

func (s *Service) reschedule(req Request, now, feedNoticed time.Time, history []entity.CachedEntry) (entity.Reschedule, *time.Time) {
	rescheduleStart := time.Now()
	r := rule.Parse(req.Rule, req.Start)
	schedule, boundary := reschedule.Reschedule(history, r, req.Start, now, feedNoticed, req.First, req.Last)
	metrics.RecordRescheduleDuration(time.Since(rescheduleStart))
	return schedule, boundary
}

func expiresFor(boundary *time.Time, now time.Time) time.Time {
	if boundary != nil {
		return *boundary
	}
	return now.Add(caughtUpRefresh)
}
