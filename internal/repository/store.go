// Package repository declares the persistence contracts the core
// pipeline depends on. The store itself is an external collaborator
// per the specification; this package only names the shape of that
// contract so the core can be tested against a fake.
package repository

import (
	"context"
	"time"

	"podreplay/internal/entity"
)

// FeedStore owns FeedMeta rows: one per distinct upstream uri.
type FeedStore interface {
	// GetByURI returns the FeedMeta for uri, or entity.ErrFeedNotFound.
	GetByURI(ctx context.Context, uri string) (*entity.FeedMeta, error)
	// Upsert creates the row on first sight (setting FirstFetched) or
	// updates LastFetched/ETag on subsequent calls, leaving
	// FirstFetched untouched. Returns the row's id.
	Upsert(ctx context.Context, uri string, fetchedAt time.Time, etag *string) (int64, error)
	// ListAll returns every tracked FeedMeta, for the background poller's
	// sweep. Order is unspecified.
	ListAll(ctx context.Context) ([]entity.FeedMeta, error)
}

// EntryStore owns the append-only CachedEntry log.
type EntryStore interface {
	// LatestByFeed returns, for feedID, the most-recently-noticed row
	// per item id (ties broken by storage order).
	LatestByFeed(ctx context.Context, feedID int64) (map[string]entity.CachedEntry, error)
	// AppendBatch inserts rows, tolerating duplicates keyed by
	// (feed_id, id, noticed, published) via an idempotent conflict
	// policy — callers may safely retry.
	AppendBatch(ctx context.Context, rows []entity.CachedEntry) error
	// History returns the full, ordered (published, noticed, id)
	// ascending history for feedID, the order the rescheduler requires.
	History(ctx context.Context, feedID int64) ([]entity.CachedEntry, error)
}

// Store is the combined persistence contract used by the replay
// use case.
type Store interface {
	FeedStore
	EntryStore
}
