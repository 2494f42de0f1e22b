// Package summarize streams an upstream RSS/Atom body and extracts the
// handful of fields the rest of the pipeline needs: per-item id,
// title, timestamp, and whether an audio enclosure was present, plus
// the feed title and a "marked private" signal.
//
// It is a single forward pass over encoding/xml tokens — no item is
// ever buffered beyond its own boundaries, and CDATA text is handled
// the same way plain character data is (encoding/xml already
// unescapes both uniformly).
package summarize

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"podreplay/internal/entity"
)

type itemAccum struct {
	id           string
	title        string
	descFallback string
	timestamp    time.Time
	hasID        bool
	hasTimestamp bool
	hasEnclosure bool
}

// leaf names the element whose character data is currently being
// accumulated. Only one leaf is ever open at a time since none of the
// recognized leaves nest inside each other.
type leaf int

const (
	leafNone leaf = iota
	leafFeedTitle
	leafItunesBlock
	leafItemID
	leafItemTitle
	leafItemDescription
	leafItemTimestamp
)

// Summarize reads a full feed document from r and extracts an
// ordered-by-timestamp sequence of items.
//
// Returns entity.ErrNotAFeed when the document carried no XML
// declaration and yielded no items — the two weak signals that
// distinguish "empty feed" from "not a feed at all".
func Summarize(r io.Reader) (entity.FeedSummary, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var (
		sawDecl       bool
		feedTitle     string
		markedPrivate bool
		sawFeedTitle  bool
		items         []entity.SummaryItem
		cur           *itemAccum
		itemDepth     int
		depth         int
		open          leaf
		buf           strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entity.FeedSummary{}, fmt.Errorf("%w: %w", entity.ErrParseFeed, err)
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if strings.EqualFold(t.Target, "xml") {
				sawDecl = true
			}

		case xml.StartElement:
			local := t.Name.Local
			switch {
			case cur == nil && (local == "item" || local == "entry"):
				cur = &itemAccum{}
				itemDepth = depth
			case cur == nil && local == "title" && !sawFeedTitle:
				open, buf = leafFeedTitle, strings.Builder{}
			case cur == nil && local == "block" && isItunesNamespace(t.Name):
				open, buf = leafItunesBlock, strings.Builder{}
			case cur != nil && (local == "guid" || local == "id"):
				open, buf = leafItemID, strings.Builder{}
			case cur != nil && local == "title":
				open, buf = leafItemTitle, strings.Builder{}
			case cur != nil && local == "description":
				open, buf = leafItemDescription, strings.Builder{}
			case cur != nil && (local == "pubDate" || local == "updated"):
				open, buf = leafItemTimestamp, strings.Builder{}
			case cur != nil && local == "enclosure":
				if hasAudioType(t.Attr) {
					cur.hasEnclosure = true
				}
			case cur != nil && local == "link":
				if isAudioEnclosureLink(t.Attr) {
					cur.hasEnclosure = true
				}
			}
			depth++

		case xml.CharData:
			if open != leafNone {
				buf.Write(t)
			}

		case xml.EndElement:
			depth--
			local := t.Name.Local

			if cur == nil {
				switch {
				case open == leafFeedTitle && local == "title":
					feedTitle, sawFeedTitle, open = buf.String(), true, leafNone
				case open == leafItunesBlock && local == "block":
					if strings.EqualFold(strings.TrimSpace(buf.String()), "yes") {
						markedPrivate = true
					}
					open = leafNone
				}
				continue
			}

			switch {
			case open == leafItemID && (local == "guid" || local == "id"):
				cur.id, cur.hasID, open = buf.String(), true, leafNone
			case open == leafItemTitle && local == "title":
				cur.title, open = buf.String(), leafNone
			case open == leafItemDescription && local == "description":
				cur.descFallback, open = truncateTitle(buf.String()), leafNone
			case open == leafItemTimestamp && (local == "pubDate" || local == "updated"):
				if ts, err := dateparse.ParseAny(strings.TrimSpace(buf.String())); err == nil {
					cur.timestamp, cur.hasTimestamp = ts.UTC(), true
				}
				open = leafNone
			case (local == "item" || local == "entry") && depth == itemDepth:
				if cur.hasID && cur.hasTimestamp && cur.hasEnclosure {
					title := cur.title
					if title == "" {
						title = cur.descFallback
					}
					items = append(items, entity.SummaryItem{
						ID:        cur.id,
						Title:     title,
						Timestamp: cur.timestamp,
					})
				}
				cur = nil
			}
		}
	}

	if !sawDecl && len(items) == 0 {
		return entity.FeedSummary{}, entity.ErrNotAFeed
	}

	// Upstream feeds are typically newest-first; reverse then
	// stable-sort so ties preserve that original relative order
	// without assuming strict monotonicity upstream.
	reverse(items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})

	return entity.FeedSummary{
		Title:         feedTitle,
		MarkedPrivate: markedPrivate,
		Items:         items,
	}, nil
}

func reverse(items []entity.SummaryItem) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func truncateTitle(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 100 {
		return string(runes[:90]) + "..."
	}
	return string(runes)
}

func hasAudioType(attrs []xml.Attr) bool {
	for _, a := range attrs {
		if a.Name.Local == "type" && strings.HasPrefix(a.Value, "audio/") {
			return true
		}
	}
	return false
}

// isAudioEnclosureLink matches Atom's <link rel="enclosure"
// type="audio/..." href="..."/> convention.
func isAudioEnclosureLink(attrs []xml.Attr) bool {
	var relOK, typeOK bool
	for _, a := range attrs {
		switch a.Name.Local {
		case "rel":
			relOK = strings.HasPrefix(a.Value, "enclosure")
		case "type":
			typeOK = strings.HasPrefix(a.Value, "audio/")
		}
	}
	return relOK && typeOK
}

func isItunesNamespace(name xml.Name) bool {
	return strings.Contains(strings.ToLower(name.Space), "itunes")
}
