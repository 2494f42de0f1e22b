// Package reschedule implements the slot-assignment algorithm: given
// an item's notice history and a recurrence rule, decide which
// recurrence slot (if any) replays it.
package reschedule

import (
	"sort"
	"time"

	"podreplay/internal/entity"
	"podreplay/internal/rule"
)

type unpublishedState int

const (
	unpublishedBeforeSlot unpublishedState = iota
	unpublishedAfterSlot
	unpublishedNever
)

// scheduled tracks every history row seen for one item id.
type scheduled struct {
	alreadyReplayed bool
	items           []*entity.CachedEntry
}

// rescheduledBefore reports whether some other notice of this id,
// noticed no later than slot but no earlier than item's own notice,
// already claims a later publish time than item — i.e. item has since
// been superseded by a reschedule that was known by slot.
func (s *scheduled) rescheduledBefore(slot time.Time, item *entity.CachedEntry) bool {
	if len(s.items) <= 1 {
		return false
	}
	for _, i := range s.items {
		if !i.Noticed.After(slot) && !i.Noticed.Before(item.Noticed) && publishedAfter(i.Published, item.Published) {
			return true
		}
	}
	return false
}

// finallyUnpublished looks at the most-recently-noticed row for this
// id (ties broken toward the later row in storage order) and reports
// whether that row shows the item as unpublished, and if so whether
// that notice happened before or after slot.
func (s *scheduled) finallyUnpublished(slot time.Time) unpublishedState {
	final := s.items[0]
	for _, i := range s.items[1:] {
		if !i.Noticed.Before(final.Noticed) {
			final = i
		}
	}
	if final.Published != nil {
		return unpublishedNever
	}
	if final.Noticed.After(slot) {
		return unpublishedAfterSlot
	}
	return unpublishedBeforeSlot
}

// publishedAfter reports a > b under the rule that an absent
// timestamp sorts before any present one.
func publishedAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

func publishedLess(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}

func publishedLessOrEqualTo(p *time.Time, slot time.Time) bool {
	return p == nil || !p.After(slot)
}

// delayedItems holds items pulled off the cutoff cursor but not yet
// eligible for a slot, kept sorted ascending by Published so the
// earliest-due item is always considered first.
type delayedItems struct {
	items []*entity.CachedEntry
}

func (d *delayedItems) add(item *entity.CachedEntry) {
	d.items = append(d.items, item)
	sort.SliceStable(d.items, func(i, j int) bool {
		return publishedLess(d.items[i].Published, d.items[j].Published)
	})
}

func (d *delayedItems) popEligible(slot time.Time) *entity.CachedEntry {
	for i, item := range d.items {
		if !item.Noticed.After(slot) {
			d.items = append(d.items[:i:i], d.items[i+1:]...)
			return item
		}
	}
	return nil
}

func (d *delayedItems) empty() bool { return len(d.items) == 0 }

func createInstancesByID(items []entity.CachedEntry) map[string]*scheduled {
	out := make(map[string]*scheduled, len(items))
	for i := range items {
		item := &items[i]
		s, ok := out[item.ID]
		if !ok {
			s = &scheduled{}
			out[item.ID] = s
		}
		s.items = append(s.items, item)
	}
	return out
}

// Reschedule assigns each eligible item a replay slot, walking rule's
// instants in order and consuming items from items (expected ascending
// by published, then noticed, then id — the order EntryStore.History
// returns) that were published at or before now and, when first/last
// are non-nil, fall within [first, last] as well.
//
// Candidate filtering by first/last only narrows which rows compete
// for a slot; instancesByID (used to detect reschedules and final
// unpublish state) is still built from the complete, unfiltered item
// set.
//
// It returns the resulting id→slot assignments and, when the walk
// stops because it reached a slot at or after now rather than because
// history was exhausted, that boundary slot — the caller's signal that
// the schedule is still catching up rather than fully resolved.
func Reschedule(items []entity.CachedEntry, r rule.Rule, start, now, feedNoticed time.Time, first, last *time.Time) (entity.Reschedule, *time.Time) {
	cutoff := make([]*entity.CachedEntry, 0, len(items))
	for i := range items {
		published := items[i].Published
		if published == nil || published.After(now) {
			continue
		}
		if first != nil && published.Before(*first) {
			continue
		}
		if last != nil && published.After(*last) {
			continue
		}
		cutoff = append(cutoff, &items[i])
	}
	cutoffIdx := 0

	instancesByID := createInstancesByID(items)
	delayed := &delayedItems{}
	results := make(entity.Reschedule)

	it := r.Iterate()

	for {
		slot := it.Next()
		if !slot.Before(now) {
			boundary := slot
			return results, &boundary
		}

	slotLoop:
		for {
			item := delayed.popEligible(slot)
			if item == nil && cutoffIdx < len(cutoff) {
				item = cutoff[cutoffIdx]
				cutoffIdx++
			}

			if item == nil {
				if delayed.empty() {
					return results, nil
				}
				break slotLoop
			}

			instances, ok := instancesByID[item.ID]
			if !ok || instances.alreadyReplayed {
				continue
			}

			if publishedLessOrEqualTo(item.Published, slot) {
				if item.Noticed.After(slot) && !start.Before(feedNoticed) {
					delayed.add(item)
					continue
				}
				if instances.rescheduledBefore(slot, item) {
					continue
				}
				switch instances.finallyUnpublished(slot) {
				case unpublishedBeforeSlot:
					continue
				case unpublishedAfterSlot:
					break slotLoop
				case unpublishedNever:
					results[item.ID] = slot
					instances.alreadyReplayed = true
					break slotLoop
				}
			} else if item.Published != nil {
				results[item.ID] = *item.Published
				instances.alreadyReplayed = true
			}
		}
	}
}
