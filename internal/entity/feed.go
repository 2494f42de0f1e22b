// Package entity defines the core domain entities for the replay engine:
// the persisted feed/entry rows and the ephemeral structures derived from
// an upstream fetch.
package entity

import "time"

// FeedMeta is the surrogate record for a tracked upstream feed.
//
// FirstFetched never changes after creation. LastFetched and ETag are
// updated on every successful fetch ("latest writer wins" under
// concurrent polls — see the store's upsert semantics).
type FeedMeta struct {
	ID           int64
	URI          string
	FirstFetched time.Time
	LastFetched  time.Time
	ETag         *string
}

// CachedEntry is one append-only notice record: what we believed about
// an item's published timestamp as of a given observation.
//
// Rows are never mutated or deleted. For a given (FeedID, ID) pair the
// rows form a time-ordered sequence by Noticed, and two consecutive
// rows always differ in Published.
type CachedEntry struct {
	ID        string
	FeedID    int64
	Noticed   time.Time
	Published *time.Time
}

// SummaryItem is an ephemeral, per-fetch view of one feed item that
// carried an audio enclosure and a parseable id + timestamp.
type SummaryItem struct {
	ID        string
	Title     string
	Timestamp time.Time
}

// FeedSummary is the outcome of summarizing one upstream fetch.
type FeedSummary struct {
	Title         string
	MarkedPrivate bool
	Items         []SummaryItem
}

// IDMap returns the summary items keyed by id, for diffing against the
// cache.
func (s FeedSummary) IDMap() map[string]SummaryItem {
	m := make(map[string]SummaryItem, len(s.Items))
	for _, item := range s.Items {
		m[item.ID] = item
	}
	return m
}

// Reschedule maps an item id to the instant the replay engine assigned
// it. At most one entry exists per id.
type Reschedule map[string]time.Time
