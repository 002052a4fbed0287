package feed

import (
	"memoria/internal/core"
)

const PreviewSize = 5

// Preview summarizes the reshares of one group observed while walking a
// page's candidate window. It is not a global count.
type Preview struct {
	CountInWindow   int
	Users           []core.User
	HasMoreInWindow bool
}

type groupStats struct {
	count int
	users []core.User
	seen  map[int64]struct{}
}

// Aggregator counts reshares per dedupe group.
type Aggregator struct {
	groups map[string]*groupStats
}

func NewAggregator() *Aggregator {
	return &Aggregator{groups: map[string]*groupStats{}}
}

// Add records one reshare edge of group by user. The first PreviewSize
// distinct users are kept in the order they were added.
func (a *Aggregator) Add(group string, user core.User) {
	g, ok := a.groups[group]
	if !ok {
		g = &groupStats{seen: map[int64]struct{}{}}
		a.groups[group] = g
	}

	g.count++

	if _, dup := g.seen[user.ID]; dup || len(g.users) >= PreviewSize {
		return
	}
	g.seen[user.ID] = struct{}{}
	g.users = append(g.users, user)
}

func (a *Aggregator) Preview(group string) Preview {
	g, ok := a.groups[group]
	if !ok {
		return Preview{}
	}
	return Preview{
		CountInWindow:   g.count,
		Users:           g.users,
		HasMoreInWindow: g.count > len(g.users),
	}
}
