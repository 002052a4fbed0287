package feed

import (
	"memoria/internal/core"
)

// Item is one candidate row of a feed: a memory, or a reshare of a memory.
type Item struct {
	Kind core.ItemKind
	Post *core.Post

	// Reshare is set iff Kind is KindReshare.
	Reshare *core.Reshare
}

func MemoryItem(p *core.Post) Item {
	return Item{Kind: core.KindMemory, Post: p}
}

func ReshareItem(r *core.Reshare) Item {
	return Item{Kind: core.KindReshare, Post: r.Post, Reshare: r}
}

// Key is the item's position in feed order.
func (i Item) Key() core.Cursor {
	if i.Kind == core.KindReshare {
		return core.Cursor{CreatedAt: i.Reshare.CreatedAt, ID: i.Reshare.ID, Kind: core.KindReshare}
	}
	return core.Cursor{CreatedAt: i.Post.CreatedAt, ID: i.Post.ID, Kind: core.KindMemory}
}

// Group is the dedupe key. A reshare shares the group of the memory it reshares.
func (i Item) Group() string {
	return i.Post.GroupKey()
}

// Batch is the result of one source fetch.
type Batch struct {
	Kind  core.ItemKind
	Items []Item

	// More is set when the scan stopped before the source ran out of rows.
	More bool
	// Last is the position of the last raw row the scan looked at, whether
	// or not it passed the predicate. Nil when nothing was scanned.
	Last *core.Cursor
}

// Extend appends the continuation of a batch fetched from b.Last.
func (b Batch) Extend(next Batch) Batch {
	b.Items = append(b.Items, next.Items...)
	b.More = next.More
	if next.Last != nil {
		b.Last = next.Last
	}
	return b
}
