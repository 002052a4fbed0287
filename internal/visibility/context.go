package visibility

import (
	"github.com/samber/lo"

	"memoria/internal/core"
)

type set = map[int64]struct{}

// Context holds the relationship sets needed to evaluate audience rules for
// one viewer. It is computed per request and never mutated afterwards.
type Context struct {
	ViewerID int64

	following set
	friends   set
	circles   set
	blocked   set
	muted     set
	hidden    set
}

// NewContext builds a Context from raw id lists. Duplicates are harmless.
func NewContext(viewerID int64, following, friends, circles, blocked, muted, hiddenPosts []int64) *Context {
	return &Context{
		ViewerID:  viewerID,
		following: lo.Keyify(following),
		friends:   lo.Keyify(friends),
		circles:   lo.Keyify(circles),
		blocked:   lo.Keyify(blocked),
		muted:     lo.Keyify(muted),
		hidden:    lo.Keyify(hiddenPosts),
	}
}

func has(s set, id int64) bool {
	_, ok := s[id]
	return ok
}

func (c *Context) IsFollowing(userID int64) bool { return has(c.following, userID) }
func (c *Context) IsFriend(userID int64) bool    { return has(c.friends, userID) }
func (c *Context) InCircle(circleID int64) bool  { return has(c.circles, circleID) }
func (c *Context) IsMuted(userID int64) bool     { return has(c.muted, userID) }

// IsBlocked reports a block edge in either direction between the viewer and userID.
func (c *Context) IsBlocked(userID int64) bool { return has(c.blocked, userID) }

func (c *Context) IsHidden(postID int64) bool { return has(c.hidden, postID) }

// Excludes reports whether content from userID is revoked by a mute or block.
func (c *Context) Excludes(userID int64) bool {
	return c.IsMuted(userID) || c.IsBlocked(userID)
}

// RelevantUserIDs is following ∪ friends ∪ {viewer}: the authors and
// resharers a home feed draws from.
func (c *Context) RelevantUserIDs() []int64 {
	ids := lo.Union(lo.Keys(c.following), lo.Keys(c.friends), []int64{c.ViewerID})
	return lo.Reject(ids, func(id int64, _ int) bool {
		return id != c.ViewerID && c.Excludes(id)
	})
}

// Audience derives the storage-side prefilter for this viewer.
func (c *Context) Audience(excludeStories bool) core.Audience {
	return core.Audience{
		ViewerID:        c.ViewerID,
		AuthorIDs:       c.RelevantUserIDs(),
		CircleIDs:       lo.Keys(c.circles),
		ExcludedUserIDs: lo.Union(lo.Keys(c.blocked), lo.Keys(c.muted)),
		HiddenPostIDs:   lo.Keys(c.hidden),
		ExcludeStories:  excludeStories,
	}
}
