package visibility

import (
	"time"

	"memoria/internal/core"
)

type Options struct {
	// IncludeStories enables the story clause. Chronological feeds leave it
	// unset: stories never appear there, not even to their author.
	IncludeStories bool

	// Now is the reference time for expiry checks.
	Now time.Time
}

// Visible is the single source of truth for whether vc's viewer may see p.
// It fails closed on unknown scopes and on posts violating scope invariants.
func Visible(p *core.Post, vc *Context, opts Options) bool {
	if p == nil || vc == nil {
		return false
	}

	if p.DeletedAt.Valid || p.Expired(opts.Now) {
		return false
	}

	if p.Validate() != nil {
		return false
	}

	if vc.Excludes(p.AuthorID) || vc.IsHidden(p.ID) {
		return false
	}

	if p.Scope == core.ScopeStory {
		return opts.IncludeStories && storyVisible(p, vc)
	}

	return scopeVisible(p, vc)
}

func scopeVisible(p *core.Post, vc *Context) bool {
	if p.AuthorID == vc.ViewerID {
		return true
	}

	switch p.Scope {
	case core.ScopePublic:
		return true
	case core.ScopeFollowers:
		return vc.IsFollowing(p.AuthorID)
	case core.ScopeFriends:
		return vc.IsFriend(p.AuthorID)
	case core.ScopeCircle:
		return p.CircleID != nil && vc.InCircle(*p.CircleID)
	case core.ScopeDirect:
		return p.DirectTargetID != nil && *p.DirectTargetID == vc.ViewerID
	default:
		return false
	}
}

func storyVisible(p *core.Post, vc *Context) bool {
	if p.AuthorID == vc.ViewerID {
		return true
	}

	switch *p.StoryAudience {
	case core.StoryAudiencePublic:
		return true
	case core.StoryAudienceFriends:
		return vc.IsFriend(p.AuthorID)
	default:
		return false
	}
}
