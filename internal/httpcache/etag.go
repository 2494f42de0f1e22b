// Package httpcache implements the composite ETag scheme the replay
// endpoint uses to fold the next replay slot and the upstream feed's
// own ETag into a single conditional-request token, so a client can
// skip both rescheduling work and the upstream fetch when neither has
// changed.
package httpcache

import (
	"strings"
	"time"
)

const expiresLayout = time.RFC3339

// Composite is a parsed "<expires>|<upstream-etag>" (or bare
// "<upstream-etag>") token. Expires is nil when the token carried no
// parseable timestamp prefix.
type Composite struct {
	Expires *time.Time
	ETag    string
}

// Format renders the header value the replay endpoint sends back:
// `"<expires-rfc3339>|<upstream-etag>"`. The separator is written even
// when upstream sent no ETag of its own (`"<expires-rfc3339>|"`), so
// Parse still reads the expires back.
func Format(expires time.Time, upstreamETag string) string {
	payload := expires.UTC().Format(expiresLayout) + "|" + upstreamETag
	return `"` + payload + `"`
}

// Parse accepts `W/"…"` and plain quoted forms, tolerating surrounding
// whitespace. The payload is either `<expires-iso>|<etag>` or a bare
// `<etag>`; a bare token that happens to parse as a timestamp is still
// treated as an opaque etag, since it carries no upstream component.
func Parse(raw string) (Composite, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Composite{}, false
	}
	s = strings.TrimPrefix(s, "W/")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	if s == "" {
		return Composite{}, false
	}

	before, after, found := strings.Cut(s, "|")
	if !found {
		return Composite{ETag: s}, true
	}
	if t, err := time.Parse(expiresLayout, before); err == nil {
		return Composite{Expires: &t, ETag: after}, true
	}
	return Composite{ETag: s}, true
}

// FormatExpiresHeader renders the Expires response header in the
// RFC-2822 date form HTTP callers expect.
func FormatExpiresHeader(t time.Time) string {
	return t.UTC().Format(time.RFC1123Z)
}

// FreshFor reports whether c's Expires is strictly after now, meaning
// the caller's cached copy is still good and a 304 can be returned
// without consulting upstream at all.
func (c Composite) FreshFor(now time.Time) bool {
	return c.Expires != nil && c.Expires.After(now)
}
