package feed

import (
	"slices"

	"github.com/samber/lo"

	"memoria/internal/core"
)

// Entry is an emitted row together with its group's reshare preview.
type Entry struct {
	Item    Item
	Preview Preview
}

type Assembly struct {
	Entries []Entry
	HasMore bool
	// Next is where the following page starts. Nil when HasMore is false.
	Next *core.Cursor
}

// horizon is the earliest position past which some source may still hold
// unfetched rows. Items ranked after it cannot be emitted yet: a row the
// source has not scanned could sort in front of them.
func horizon(batches []Batch) *core.Cursor {
	var h *core.Cursor
	for _, b := range batches {
		if !b.More || b.Last == nil {
			continue
		}
		if h == nil || b.Last.Before(*h) {
			h = b.Last
		}
	}
	return h
}

// Assemble merges source batches into one page of at most limit rows:
// sorted by (created_at desc, id desc, kind), one row per dedupe group.
// Every fetched reshare counts toward its group's preview, emitted or not.
func Assemble(limit int, batches ...Batch) Assembly {
	items := lo.FlatMap(batches, func(b Batch, _ int) []Item { return b.Items })
	slices.SortStableFunc(items, func(a, b Item) int {
		ka, kb := a.Key(), b.Key()
		switch {
		case ka.Before(kb):
			return -1
		case kb.Before(ka):
			return 1
		default:
			return 0
		}
	})

	h := horizon(batches)
	agg := NewAggregator()
	seen := map[string]struct{}{}
	emitted := make([]Item, 0, limit)
	lastEmitted := -1
	leftover := false

	for i, it := range items {
		group := it.Group()
		if it.Kind == core.KindReshare {
			agg.Add(group, lo.FromPtrOr(it.Reshare.User, core.User{ID: it.Reshare.UserID}))
		}

		// Past the horizon rows still count toward previews but are held back.
		if h != nil && h.Before(it.Key()) {
			continue
		}

		if len(emitted) >= limit {
			leftover = true
			continue
		}
		if _, dup := seen[group]; dup {
			continue
		}

		seen[group] = struct{}{}
		emitted = append(emitted, it)
		lastEmitted = i
	}

	out := Assembly{
		Entries: lo.Map(emitted, func(it Item, _ int) Entry {
			return Entry{Item: it, Preview: agg.Preview(it.Group())}
		}),
	}

	full := limit > 0 && len(emitted) >= limit
	switch {
	case full && (h != nil || leftover):
		next := items[lastEmitted].Key()
		out.HasMore, out.Next = true, &next
	case !full && h != nil:
		next := *h
		out.HasMore, out.Next = true, &next
	}

	return out
}
