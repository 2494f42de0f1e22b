package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines patterns for dynamic routes. The replay engine's
// routes are all static (/replay, /summary, /health, /ready, /live,
// /metrics) with the feed identified by a query parameter rather than a
// path segment, so there is nothing to template here today. Kept as a
// slice so a future path-based route can add a pattern without touching
// the normalization logic below.
var pathPatterns []*PathPattern

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality explosion.
// Static paths pass through unchanged.
//
// Examples:
//
//	NormalizePath("/replay")                      // "/replay" (unchanged)
//	NormalizePath("/replay?feed=http://x/f.xml")  // "/replay" (query stripped)
//	NormalizePath("/summary/")                    // "/summary" (trailing slash stripped)
//	NormalizePath("/health")                      // "/health" (unchanged)
//	NormalizePath("/metrics")                     // "/metrics" (unchanged)
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	// Try to match against known patterns
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found, return original path
	return path
}

// GetExpectedCardinality returns the expected number of unique path labels
// after normalization. This is useful for capacity planning and monitoring.
//
// Expected cardinality calculation:
//   - Static endpoints: /replay, /summary, /health, /ready, /live, /metrics (~6)
//   - Template endpoints: none today
func GetExpectedCardinality() int {
	templateCount := len(pathPatterns)
	staticCount := 6
	return templateCount + staticCount
}
