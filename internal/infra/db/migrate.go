package db

import (
	"database/sql"
)

// MigrateUp creates the feeds/entries schema the store needs. Both
// statements are idempotent so it is safe to run on every startup.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id            SERIAL PRIMARY KEY,
    uri           TEXT NOT NULL UNIQUE,
    first_fetched TIMESTAMPTZ NOT NULL,
    last_fetched  TIMESTAMPTZ NOT NULL,
    etag          TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS entries (
    id        TEXT NOT NULL,
    feed_id   INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    noticed   TIMESTAMPTZ NOT NULL,
    published TIMESTAMPTZ
)`); err != nil {
		return err
	}

	indexes := []string{
		// History() and LatestByFeed() both scan by feed_id ordered by
		// (published, noticed, id).
		`CREATE INDEX IF NOT EXISTS idx_entries_feed_order ON entries(feed_id, published, noticed, id)`,
		// AppendBatch's conflict check is keyed on the full tuple.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_dedup ON entries(feed_id, id, noticed, published)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the schema. Use with caution: this deletes every
// tracked feed and its notice history.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS entries CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
