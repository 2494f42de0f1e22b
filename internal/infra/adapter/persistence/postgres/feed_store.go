// Package postgres implements the repository contracts against a
// Postgres database via database/sql and the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"podreplay/internal/entity"
	"podreplay/internal/repository"
	"podreplay/internal/resilience/circuitbreaker"
)

// FeedStore implements repository.Store against the feeds/entries
// schema (see internal/infra/db.MigrateUp). Reads go through the
// database circuit breaker; writes stay on the raw handle because they
// already run inside short single-purpose transactions.
type FeedStore struct {
	db *sql.DB
	cb *circuitbreaker.DBCircuitBreaker
}

// NewFeedStore wraps db as a repository.Store.
func NewFeedStore(db *sql.DB) repository.Store {
	return &FeedStore{db: db, cb: circuitbreaker.NewDBCircuitBreaker(db)}
}

func (s *FeedStore) GetByURI(ctx context.Context, uri string) (*entity.FeedMeta, error) {
	const query = `
SELECT id, uri, first_fetched, last_fetched, etag
FROM feeds
WHERE uri = $1`
	var meta entity.FeedMeta
	err := s.cb.QueryRowContext(ctx, query, uri).Scan(
		&meta.ID, &meta.URI, &meta.FirstFetched, &meta.LastFetched, &meta.ETag)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("GetByURI: %w", entity.ErrFeedNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURI: %w: %w", entity.ErrDatabase, err)
	}
	return &meta, nil
}

func (s *FeedStore) Upsert(ctx context.Context, uri string, fetchedAt time.Time, etag *string) (int64, error) {
	const query = `
INSERT INTO feeds (uri, first_fetched, last_fetched, etag)
VALUES ($1, $2, $2, $3)
ON CONFLICT (uri) DO UPDATE SET
    last_fetched = EXCLUDED.last_fetched,
    etag         = EXCLUDED.etag
RETURNING id`
	var id int64
	if err := s.db.QueryRowContext(ctx, query, uri, fetchedAt, etag).Scan(&id); err != nil {
		return 0, fmt.Errorf("Upsert: %w: %w", entity.ErrDatabase, err)
	}
	return id, nil
}

func (s *FeedStore) ListAll(ctx context.Context) ([]entity.FeedMeta, error) {
	const query = `SELECT id, uri, first_fetched, last_fetched, etag FROM feeds ORDER BY id ASC`
	rows, err := s.cb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w: %w", entity.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]entity.FeedMeta, 0, 64)
	for rows.Next() {
		var m entity.FeedMeta
		if err := rows.Scan(&m.ID, &m.URI, &m.FirstFetched, &m.LastFetched, &m.ETag); err != nil {
			return nil, fmt.Errorf("ListAll: %w: %w", entity.ErrDatabase, err)
		}
		feeds = append(feeds, m)
	}
	return feeds, rows.Err()
}

func (s *FeedStore) LatestByFeed(ctx context.Context, feedID int64) (map[string]entity.CachedEntry, error) {
	history, err := s.History(ctx, feedID)
	if err != nil {
		return nil, err
	}
	return latestByID(history), nil
}

func (s *FeedStore) AppendBatch(ctx context.Context, rows []entity.CachedEntry) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AppendBatch: %w: %w", entity.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO entries (id, feed_id, noticed, published)
VALUES ($1, $2, $3, $4)
ON CONFLICT (feed_id, id, noticed, published) DO NOTHING`
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, query, row.ID, row.FeedID, row.Noticed, row.Published); err != nil {
			return fmt.Errorf("AppendBatch: %w: %w", entity.ErrDatabase, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("AppendBatch: %w: %w", entity.ErrDatabase, err)
	}
	return nil
}

func (s *FeedStore) History(ctx context.Context, feedID int64) ([]entity.CachedEntry, error) {
	const query = `
SELECT id, feed_id, noticed, published
FROM entries
WHERE feed_id = $1
ORDER BY published ASC NULLS FIRST, noticed ASC, id ASC`
	rows, err := s.cb.QueryContext(ctx, query, feedID)
	if err != nil {
		return nil, fmt.Errorf("History: %w: %w", entity.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	history := make([]entity.CachedEntry, 0, 128)
	for rows.Next() {
		var e entity.CachedEntry
		if err := rows.Scan(&e.ID, &e.FeedID, &e.Noticed, &e.Published); err != nil {
			return nil, fmt.Errorf("History: %w: %w", entity.ErrDatabase, err)
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

func latestByID(history []entity.CachedEntry) map[string]entity.CachedEntry {
	out := make(map[string]entity.CachedEntry, len(history))
	for _, e := range history {
		existing, ok := out[e.ID]
		if !ok || e.Noticed.After(existing.Noticed) {
			out[e.ID] = e
		}
	}
	return out
}
