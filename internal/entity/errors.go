package entity

import "errors"

// Sentinel error kinds surfaced by the core pipeline. The HTTP handler
// layer is the sole translator from these into status codes (see
// internal/handler/http/replaysvr); every error returned by a lower
// layer should wrap one of these via fmt.Errorf("%w: ...", kind) so
// errors.Is classification survives the boundary crossing.
var (
	// ErrInvalidRequest marks a client-supplied parameter (uri, rule,
	// etag) that failed validation before any I/O was attempted.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotModified signals a conditional request/fetch that can be
	// short-circuited to 304 without re-deriving a response body.
	ErrNotModified = errors.New("not modified")

	// ErrFetchUpstream marks a failure reaching or reading the
	// upstream feed itself (network, non-2xx, timeout).
	ErrFetchUpstream = errors.New("upstream fetch failed")

	// ErrParseFeed marks a failure interpreting a fetched body as a
	// feed (see also ErrNotAFeed for the weaker "no feed at all" case).
	ErrParseFeed = errors.New("feed parse failed")

	// ErrNotAFeed indicates the summarizer found no XML declaration and
	// produced zero items; the upstream body is not a feed at all.
	ErrNotAFeed = errors.New("not a feed")

	// ErrWriteFeed marks a failure producing the rewritten output feed.
	ErrWriteFeed = errors.New("feed rewrite failed")

	// ErrDatabase marks a failure in the persistent store.
	ErrDatabase = errors.New("database error")

	// ErrFeedNotFound indicates the store has no FeedMeta for a uri.
	ErrFeedNotFound = errors.New("feed not found")

	// ErrUnknown covers I/O or other failures that don't fit a more
	// specific kind above.
	ErrUnknown = errors.New("unknown error")
)
