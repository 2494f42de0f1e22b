// Package autodiscovery implements the minimal "find a feed URL inside
// an HTML page" collaborator /summary falls back to when a requested
// uri turns out to serve HTML rather than a feed directly: scan
// <link rel="alternate"> tags for a feed type and resolve the first
// match against the page's own URL.
package autodiscovery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var feedTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
	"application/xml":      true,
	"text/xml":             true,
}

// DiscoverFeedURL scans html for the first <link rel="alternate"> tag
// advertising a feed type, resolving its href against base. ok is
// false when no such link was found or the document failed to parse.
func DiscoverFeedURL(html []byte, base *url.URL) (feedURL string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return "", false
	}

	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		if !feedTypes[strings.ToLower(strings.TrimSpace(typ))] {
			return true
		}
		href, exists := s.Attr("href")
		if !exists || strings.TrimSpace(href) == "" {
			return true
		}
		resolved, err := resolve(base, href)
		if err != nil {
			return true
		}
		feedURL, ok = resolved, true
		return false
	})

	return feedURL, ok
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
