package core

import "time"

// ItemKind is the feed_type of a row.
type ItemKind string

const (
	KindMemory  ItemKind = "memory"
	KindReshare ItemKind = "reshare"
)

// rank breaks (created_at, id) ties between the two source tables:
// memories sort before reshares.
func (k ItemKind) rank() int {
	if k == KindReshare {
		return 1
	}
	return 0
}

// Cursor is a keyset position in the merged feed order
// (created_at desc, id desc, kind).
type Cursor struct {
	CreatedAt time.Time
	ID        int64
	// Kind is empty for cursors that carry no table information; they behave
	// like a reshare position, i.e. the plain strict (created_at, id) predicate.
	Kind ItemKind
}

// Before reports whether a ranks strictly ahead of b in feed order.
func (a Cursor) Before(b Cursor) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.ID != b.ID {
		return a.ID > b.ID
	}
	return a.kindRank() < b.kindRank()
}

func (a Cursor) kindRank() int {
	if a.Kind == "" {
		return KindReshare.rank()
	}
	return a.Kind.rank()
}

// IncludesTie reports whether rows of kind k located exactly at the cursor's
// (created_at, id) still come after the cursor.
func (a Cursor) IncludesTie(k ItemKind) bool {
	return k.rank() > a.kindRank()
}
