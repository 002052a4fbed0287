package core

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type DB interface {
	// Guard runs fn against the database through the circuit breaker.
	// Failures are reported wrapped in ErrUnavailable.
	Guard(ctx context.Context, fn func(tx *gorm.DB) error) error

	EstimatedCount(ctx context.Context, tableName string) (int64, error)
}

// GraphRepository reads the relationship tables owned by collaborators.
type GraphRepository interface {
	FollowingIDs(ctx context.Context, userID int64) ([]int64, error)
	FriendIDs(ctx context.Context, userID int64) ([]int64, error)
	CircleIDs(ctx context.Context, userID int64) ([]int64, error)
	// BlockedIDs returns users blocked by, or blocking, userID.
	BlockedIDs(ctx context.Context, userID int64) ([]int64, error)
	MutedIDs(ctx context.Context, userID int64) ([]int64, error)
	HiddenPostIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Audience is the storage-side candidate filter derived from a viewer's
// visibility context: memories by AuthorIDs, memories addressed to one of
// CircleIDs or directly to the viewer. It may let through rows the
// visibility predicate later rejects.
type Audience struct {
	ViewerID int64

	// AuthorIDs are authors whose non-public memories may be visible.
	AuthorIDs []int64
	CircleIDs []int64

	ExcludedUserIDs []int64
	HiddenPostIDs   []int64
	ExcludeStories  bool
}

type PostQuery struct {
	Audience Audience
	After    *Cursor
	Limit    int
	Now      time.Time

	// AuthorID restricts the scan to one author's memories and replaces the
	// audience author clause.
	AuthorID *int64
	// AllAuthors drops the audience author clause; exclusions still apply.
	AllAuthors bool
	// Since bounds the scan to memories created at or after it.
	Since *time.Time
	// Text restricts the scan to bodies containing it, case-insensitively.
	Text string
	// ByScore orders the scan by trending score instead of feed order.
	ByScore bool
	// Offset skips that many rows of the ordered scan.
	Offset int
}

type ReshareQuery struct {
	Audience Audience
	After    *Cursor
	Limit    int
	Now      time.Time

	// ResharerIDs restricts whose reshares are scanned.
	ResharerIDs []int64
}

type PostRepository interface {
	// ScanPosts returns memories after q.After in feed order, with authors loaded.
	ScanPosts(ctx context.Context, q PostQuery) ([]Post, error)
	// FindPosts loads the live memories among ids, in no particular order.
	FindPosts(ctx context.Context, ids []int64, now time.Time) ([]Post, error)
}

type ReshareRepository interface {
	// ScanReshares returns reshares after q.After in feed order, with the
	// resharer, the memory and its author loaded.
	ScanReshares(ctx context.Context, q ReshareQuery) ([]Reshare, error)
}

// CacheStore is a byte-oriented key/value cache with expiry.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}
