package replaysvr

import (
	"fmt"
	"net/http"
	"time"

	"podreplay/internal/entity"
	"podreplay/internal/usecase/replay"
)

// parseReplayRequest translates /replay's query parameters into a
// replay.Request, or an entity.ErrInvalidRequest-wrapped error when a
// required parameter is missing or malformed.
func parseReplayRequest(r *http.Request) (replay.Request, error) {
	q := r.URL.Query()

	uri := q.Get("uri")
	if uri == "" {
		return replay.Request{}, invalid("uri is required")
	}

	rawStart := q.Get("start")
	if rawStart == "" {
		return replay.Request{}, invalid("start is required")
	}
	start, err := time.Parse(time.RFC3339, rawStart)
	if err != nil {
		return replay.Request{}, invalid("start must be RFC-3339")
	}

	rule := q.Get("rule")
	if rule == "" {
		return replay.Request{}, invalid("rule is required")
	}

	req := replay.Request{
		URI:         uri,
		Start:       start.UTC(),
		Rule:        rule,
		Title:       q.Get("title"),
		IfNoneMatch: r.Header.Get("If-None-Match"),
	}

	if raw := q.Get("now"); raw != "" {
		now, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return replay.Request{}, invalid("now must be RFC-3339")
		}
		req.Now = now.UTC()
	}

	if raw := q.Get("first"); raw != "" {
		first, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return replay.Request{}, invalid("first must be RFC-3339")
		}
		first = first.UTC()
		req.First = &first
	}

	if raw := q.Get("last"); raw != "" {
		last, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return replay.Request{}, invalid("last must be RFC-3339")
		}
		last = last.UTC()
		req.Last = &last
	}

	req.Pretty = q.Get("pretty") == "true"
	req.Private = q.Get("private") == "true"

	return req, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", entity.ErrInvalidRequest, msg)
}
