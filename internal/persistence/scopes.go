package persistence

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"memoria/internal/core"
)

// After applies the keyset predicate for rows of kind stored in table.
// Rows sharing the cursor's (created_at, id) are kept only when they rank
// after the cursor's own kind.
func After(table string, kind core.ItemKind, c *core.Cursor) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if c == nil {
			return tx
		}

		op := "<"
		if c.IncludesTie(kind) {
			op = "<="
		}

		return tx.Where(
			"("+table+".created_at < ? OR ("+table+".created_at = ? AND "+table+".id "+op+" ?))",
			c.CreatedAt, c.CreatedAt, c.ID,
		)
	}
}

// Newest orders rows of table in feed order.
func Newest(table string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order(table + ".created_at DESC").Order(table + ".id DESC")
	}
}

// TopScored orders memories by trending score, newest first on ties.
func TopScored() func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.
			Order("(posts.hearts_count * 2 + posts.comments_count * 3 + posts.reshares_count * 4) DESC").
			Scopes(Newest("posts"))
	}
}

// Live drops soft-deleted and expired memories.
func Live(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.
			Where("posts.deleted_at IS NULL").
			Where("(posts.expires_at IS NULL OR posts.expires_at > ?)", now)
	}
}

// Exclusions applies the audience-independent parts of an Audience.
func Exclusions(a core.Audience) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if a.ExcludeStories {
			tx = tx.Where("posts.scope <> ?", core.ScopeStory)
		}
		if len(a.ExcludedUserIDs) > 0 {
			tx = tx.Where("posts.author_id NOT IN ?", a.ExcludedUserIDs)
		}
		if len(a.HiddenPostIDs) > 0 {
			tx = tx.Where("posts.id NOT IN ?", a.HiddenPostIDs)
		}
		return tx
	}
}

// Reachable keeps memories authored by the audience, addressed to one of its
// circles or sent directly to the viewer.
func Reachable(a core.Audience) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(
			"(posts.author_id IN ? OR (posts.scope = ? AND posts.circle_id IN ?) OR (posts.scope = ? AND posts.direct_target_id = ?))",
			nonEmpty(a.AuthorIDs), core.ScopeCircle, nonEmpty(a.CircleIDs), core.ScopeDirect, a.ViewerID,
		)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BodyContains matches memories whose body contains text, ignoring case.
func BodyContains(text string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if text == "" {
			return tx
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		return tx.Where(`LOWER(posts.body) LIKE ? ESCAPE '\'`, pattern)
	}
}

// nonEmpty keeps IN clauses valid for empty id sets; no row has id 0.
func nonEmpty(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{0}
	}
	return ids
}
