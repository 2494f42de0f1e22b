// Package rewrite produces a byte-faithful copy of an upstream feed
// document with item timestamps replaced by their assigned replay
// slot, unscheduled items dropped, and the feed title/privacy flag
// updated.
//
// It leans on encoding/xml's Decoder.InputOffset to slice the exact
// original bytes of every token instead of re-serializing content:
// comments, attribute quoting, CDATA wrappers, and incidental
// whitespace survive the round trip untouched. Only the handful of
// leaves this package cares about ever get new bytes written in their
// place.
package rewrite

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"podreplay/internal/entity"
)

const atomNamespace = "http://www.w3.org/2005/Atom"

// Options controls the cosmetic and privacy aspects of a rewrite.
type Options struct {
	// MarkPrivate inserts <itunes:block>Yes</itunes:block> into the
	// feed-level container so podcast directories stop indexing the
	// replay feed.
	MarkPrivate bool
	// CustomTitle overrides the default "<original> (PodReplay)"
	// feed title when non-empty.
	CustomTitle string
	// Pretty re-indents the output for human debugging. It sacrifices
	// exact byte fidelity (comments and CDATA markers may be
	// normalized) and is off by default for that reason.
	Pretty bool
}

type leaf int

const (
	leafNone leaf = iota
	leafFeedTitle
	leafItemID
	leafItemPubDate
	leafItemUpdated
)

// chunk is either literal bytes ready to emit, or a placeholder for an
// item timestamp whose target slot wasn't known yet when the chunk was
// queued (the guid appeared after the timestamp in document order).
type chunk struct {
	timestampKind leaf
	literal       []byte
}

type itemState struct {
	chunks       []chunk
	pendingIdx   []int
	id           string
	hasID        bool
	hasTimestamp bool
	hasEnclosure bool
	haveTarget   bool
	target       time.Time
}

// Rewrite rewrites src so that every item id present in schedule
// carries its assigned timestamp, every other item is dropped, and
// the feed title/privacy flag reflect opts.
func Rewrite(src []byte, schedule entity.Reschedule, opts Options) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(src))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var out bytes.Buffer
	var (
		item          *itemState
		itemDepth     int
		depth         int
		open          leaf
		insertedBlock bool
		sawFeedTitle  bool
		origFeedTitle string
		feedTitleBuf  strings.Builder
	)

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rewrite: decode: %w", err)
		}
		end := dec.InputOffset()
		raw := append([]byte(nil), src[start:end]...)

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			switch {
			case item == nil && (local == "item" || local == "entry"):
				item = &itemState{}
				itemDepth = depth
				item.chunks = append(item.chunks, chunk{literal: raw})
			case item == nil && local == "title" && !sawFeedTitle:
				open = leafFeedTitle
				feedTitleBuf.Reset()
				out.Write(raw)
			case item == nil && (local == "channel" || local == "feed") && !insertedBlock:
				out.Write(raw)
				if opts.MarkPrivate && (local == "channel" || isAtomFeedRoot(t)) {
					out.WriteString("<itunes:block>Yes</itunes:block>")
				}
				insertedBlock = true
			case item != nil && (local == "guid" || local == "id"):
				open = leafItemID
				item.chunks = append(item.chunks, chunk{literal: raw})
			case item != nil && local == "pubDate":
				open = leafItemPubDate
				item.chunks = append(item.chunks, chunk{literal: raw})
			case item != nil && local == "updated":
				open = leafItemUpdated
				item.chunks = append(item.chunks, chunk{literal: raw})
			case item != nil && local == "enclosure":
				if hasAudioType(t.Attr) {
					item.hasEnclosure = true
				}
				item.chunks = append(item.chunks, chunk{literal: raw})
			case item != nil && local == "link":
				if isAudioEnclosureLink(t.Attr) {
					item.hasEnclosure = true
				}
				item.chunks = append(item.chunks, chunk{literal: raw})
			case item != nil:
				item.chunks = append(item.chunks, chunk{literal: raw})
			default:
				out.Write(raw)
			}
			depth++

		case xml.CharData:
			switch {
			case open == leafFeedTitle:
				feedTitleBuf.Write(t)
			case item != nil && open == leafItemID:
				item.id += string(t)
				item.chunks = append(item.chunks, chunk{literal: raw})
			case item != nil && open == leafItemPubDate:
				item.hasTimestamp = true
				if item.haveTarget {
					item.chunks = append(item.chunks, chunk{literal: formatTimestamp(leafItemPubDate, item.target)})
				} else {
					item.pendingIdx = append(item.pendingIdx, len(item.chunks))
					item.chunks = append(item.chunks, chunk{timestampKind: leafItemPubDate})
				}
			case item != nil && open == leafItemUpdated:
				item.hasTimestamp = true
				if item.haveTarget {
					item.chunks = append(item.chunks, chunk{literal: formatTimestamp(leafItemUpdated, item.target)})
				} else {
					item.pendingIdx = append(item.pendingIdx, len(item.chunks))
					item.chunks = append(item.chunks, chunk{timestampKind: leafItemUpdated})
				}
			case item != nil:
				item.chunks = append(item.chunks, chunk{literal: raw})
			default:
				out.Write(raw)
			}

		case xml.EndElement:
			depth--
			local := t.Name.Local

			switch {
			case open == leafFeedTitle && local == "title":
				origFeedTitle = feedTitleBuf.String()
				sawFeedTitle = true
				open = leafNone
				out.WriteString(xmlEscapeText(resolveFeedTitle(origFeedTitle, opts.CustomTitle)))
				out.Write(raw)

			case item != nil && open == leafItemID && (local == "guid" || local == "id"):
				item.hasID = true
				open = leafNone
				item.chunks = append(item.chunks, chunk{literal: raw})
				if slot, ok := schedule[item.id]; ok {
					item.haveTarget = true
					item.target = slot
					for _, idx := range item.pendingIdx {
						item.chunks[idx] = resolveChunk(item.chunks[idx], slot)
					}
					item.pendingIdx = nil
				}

			case item != nil && open == leafItemPubDate && local == "pubDate":
				open = leafNone
				item.chunks = append(item.chunks, chunk{literal: raw})

			case item != nil && open == leafItemUpdated && local == "updated":
				open = leafNone
				item.chunks = append(item.chunks, chunk{literal: raw})

			case item != nil && (local == "item" || local == "entry") && depth == itemDepth:
				item.chunks = append(item.chunks, chunk{literal: raw})
				if item.hasID && item.hasTimestamp && item.hasEnclosure && item.haveTarget {
					for _, c := range item.chunks {
						out.Write(c.literal)
					}
				}
				item = nil

			case item != nil:
				item.chunks = append(item.chunks, chunk{literal: raw})

			default:
				out.Write(raw)
			}

		default:
			if item != nil {
				item.chunks = append(item.chunks, chunk{literal: raw})
			} else {
				out.Write(raw)
			}
		}
	}

	result := out.Bytes()
	if opts.Pretty {
		return prettyPrint(result)
	}
	return result, nil
}

func formatTimestamp(kind leaf, slot time.Time) []byte {
	switch kind {
	case leafItemPubDate:
		return []byte(slot.UTC().Format(time.RFC1123Z))
	case leafItemUpdated:
		return []byte(slot.UTC().Format("2006-01-02T15:04:05Z"))
	default:
		return nil
	}
}

func resolveChunk(c chunk, slot time.Time) chunk {
	return chunk{literal: formatTimestamp(c.timestampKind, slot)}
}

func resolveFeedTitle(original, custom string) string {
	switch {
	case custom != "":
		return custom
	case original != "":
		return original + " (PodReplay)"
	default:
		return "Untitled Podreplay Feed"
	}
}

func xmlEscapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func isAtomFeedRoot(t xml.StartElement) bool {
	return t.Name.Space == atomNamespace
}

func hasAudioType(attrs []xml.Attr) bool {
	for _, a := range attrs {
		if a.Name.Local == "type" && strings.HasPrefix(a.Value, "audio/") {
			return true
		}
	}
	return false
}

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

// prettyPrint re-indents an already-rewritten document for human
// debugging. The xml declaration, if present, is copied through
// verbatim since encoding/xml.Encoder refuses to emit one itself.
func prettyPrint(compact []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(compact))
	dec.Strict = false

	var out bytes.Buffer
	enc := xml.NewEncoder(&out)
	enc.Indent("", "  ")

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rewrite: pretty: %w", err)
		}
		if pi, ok := tok.(xml.ProcInst); ok && pi.Target == "xml" {
			if err := enc.Flush(); err != nil {
				return nil, fmt.Errorf("rewrite: pretty: %w", err)
			}
			fmt.Fprintf(&out, "<?%s %s?>\n", pi.Target, pi.Inst)
			continue
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return nil, fmt.Errorf("rewrite: pretty: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("rewrite: pretty: %w", err)
	}
	return out.Bytes(), nil
}
