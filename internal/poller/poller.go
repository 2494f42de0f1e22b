// Package poller runs a periodic sweep across every tracked feed,
// refreshing the notice-history cache ahead of client requests so a
// /replay call rarely pays for a synchronous upstream round trip.
package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"podreplay/internal/diff"
	"podreplay/internal/entity"
	"podreplay/internal/fetcher"
	"podreplay/internal/observability/metrics"
	"podreplay/internal/observability/tracing"
	"podreplay/internal/repository"
	"podreplay/internal/summarize"
)

// Upstream is the subset of fetcher.Fetcher the poller depends on.
type Upstream interface {
	Fetch(ctx context.Context, uri, ifNoneMatch string) (*fetcher.Result, error)
}

// Concurrency bounds how many feeds a single sweep refreshes at once.
const Concurrency = 8

// Poller sweeps every feed FeedStore.ListAll returns, refreshing each
// one the same way the replay endpoint would on a cache miss: a
// conditional fetch, a diff against the cached history, and a persist
// of anything new.
type Poller struct {
	Store    repository.Store
	Upstream Upstream
}

// New builds a Poller.
func New(store repository.Store, upstream Upstream) *Poller {
	return &Poller{Store: store, Upstream: upstream}
}

// FeedFailure records one feed that could not be refreshed during a
// sweep, with the reason kept as a plain string so the report can be
// forwarded to notification channels without dragging error chains
// along.
type FeedFailure struct {
	URI    string
	Reason string
}

// Report summarizes one completed sweep.
type Report struct {
	Started    time.Time
	Duration   time.Duration
	FeedsTotal int
	Refreshed  int
	Failures   []FeedFailure
}

// Sweep refreshes every tracked feed concurrently, bounded by
// Concurrency. Unreachable feeds are recorded in the report and
// skipped — one dead upstream shouldn't abort the sweep for every
// other feed — while any other failure (store errors, parse errors)
// aborts with the first such error.
func (p *Poller) Sweep(ctx context.Context) (Report, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "poller.Sweep")
	defer span.End()

	start := time.Now()
	report := Report{Started: start.UTC()}
	defer func() {
		metrics.RecordPollerSweep(time.Since(start))
	}()

	feeds, err := p.Store.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("list feeds: %w", err)
	}
	metrics.UpdateFeedsTrackedTotal(len(feeds))
	report.FeedsTotal = len(feeds)

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(Concurrency)

	for _, feed := range feeds {
		feed := feed
		eg.Go(func() error {
			if err := p.refreshFeed(egCtx, feed); err != nil {
				if errors.Is(err, entity.ErrFetchUpstream) {
					slog.Warn("poller: feed unreachable, skipping",
						slog.String("uri", feed.URI), slog.Any("error", err))
					mu.Lock()
					report.Failures = append(report.Failures, FeedFailure{URI: feed.URI, Reason: err.Error()})
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("refresh %s: %w", feed.URI, err)
			}
			mu.Lock()
			report.Refreshed++
			mu.Unlock()
			return nil
		})
	}

	err = eg.Wait()
	report.Duration = time.Since(start)
	return report, err
}

// refreshFeed performs one conditional fetch + diff + persist cycle
// for feed, mirroring the non-reschedule half of the /replay control
// flow (it never computes or returns a reschedule; that stays a
// per-request concern).
func (p *Poller) refreshFeed(ctx context.Context, feed entity.FeedMeta) error {
	conditionalETag := ""
	if feed.ETag != nil {
		conditionalETag = *feed.ETag
	}

	result, err := p.Upstream.Fetch(ctx, feed.URI, conditionalETag)
	if err != nil {
		return err
	}
	if result.NotModified {
		return nil
	}

	now := time.Now().UTC()
	var etag *string
	if result.ETag != "" {
		etag = &result.ETag
	}
	if _, err := p.Store.Upsert(ctx, feed.URI, now, etag); err != nil {
		return err
	}

	summary, err := summarize.Summarize(bytes.NewReader(result.Body))
	if err != nil {
		return err
	}

	cached, err := p.Store.LatestByFeed(ctx, feed.ID)
	if err != nil {
		return err
	}

	rows := diff.Diff(summary, cached, feed.ID, now)
	if len(rows) == 0 {
		return nil
	}
	if err := p.Store.AppendBatch(ctx, rows); err != nil {
		return err
	}
	metrics.RecordNoticesAppended(len(rows))
	return nil
}
