// Package diff compares a fresh summary against the cached notice
// history for a feed and produces the new rows that belong in the
// append-only log.
package diff

import (
	"time"

	"podreplay/internal/entity"
)

// Diff returns the CachedEntry rows that should be appended given a
// fresh summary and the most-recently-noticed row per item id.
//
// Two cases produce a row:
//  1. an id already in cached whose current timestamp differs from the
//     cached Published value (nil-vs-set counts as a difference — this
//     is how an item disappearing from the feed gets recorded), and
//  2. an id present in the summary but never noticed before.
//
// Items present in cached but absent from the summary, whose last
// recorded state was already "unpublished" (Published == nil), do not
// produce a row — there is nothing new to notice.
func Diff(summary entity.FeedSummary, cached map[string]entity.CachedEntry, feedID int64, now time.Time) []entity.CachedEntry {
	items := summary.IDMap()
	var out []entity.CachedEntry

	for id, entry := range cached {
		item, present := items[id]

		var current *time.Time
		if present {
			ts := item.Timestamp
			current = &ts
		}

		if timestampsDiffer(entry.Published, current) {
			out = append(out, entity.CachedEntry{
				ID:        id,
				FeedID:    feedID,
				Noticed:   now,
				Published: current,
			})
		}
	}

	for id, item := range items {
		if _, known := cached[id]; known {
			continue
		}
		ts := item.Timestamp
		out = append(out, entity.CachedEntry{
			ID:        id,
			FeedID:    feedID,
			Noticed:   now,
			Published: &ts,
		})
	}

	return out
}

func timestampsDiffer(a, b *time.Time) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return !a.Equal(*b)
}

// Reduce collapses an ordered CachedEntry history into the
// latest-per-id view the differ consumes, breaking ties by the later
// Noticed value.
func Reduce(history []entity.CachedEntry) map[string]entity.CachedEntry {
	out := make(map[string]entity.CachedEntry, len(history))
	for _, entry := range history {
		existing, ok := out[entry.ID]
		if !ok || entry.Noticed.After(existing.Noticed) {
			out[entry.ID] = entry
		}
	}
	return out
}
