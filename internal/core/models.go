package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Scope is the audience class of a memory.
type Scope string

const (
	ScopePublic    Scope = "public"
	ScopeFollowers Scope = "followers"
	ScopeFriends   Scope = "friends"
	ScopeCircle    Scope = "circle"
	ScopeDirect    Scope = "direct"
	ScopePrivate   Scope = "private"
	ScopeStory     Scope = "story"
)

// StoryAudience narrows who can see a story.
type StoryAudience string

const (
	StoryAudiencePublic  StoryAudience = "public"
	StoryAudienceFriends StoryAudience = "friends"
)

// User is the read-only projection of an account used to render authors and resharers.
type User struct {
	ID          int64 `gorm:"primaryKey"`
	Username    string
	DisplayName string
	AvatarURL   string
}

func (User) TableName() string {
	return "users"
}

// Post is a memory. Identity is immutable; only counters and deleted_at change.
type Post struct {
	ID       int64 `gorm:"primaryKey;index:idx_posts_created_id,priority:2"`
	AuthorID int64 `gorm:"not null;index"`
	Author   *User `gorm:"foreignKey:AuthorID"`
	Body     string

	Scope          Scope `gorm:"type:varchar(16);not null"`
	CircleID       *int64
	DirectTargetID *int64
	StoryAudience  *StoryAudience `gorm:"type:varchar(16)"`

	// ClientGroupKey is set by clients publishing one action into several scopes.
	ClientGroupKey *string

	HeartsCount   int64 `gorm:"not null;default:0"`
	CommentsCount int64 `gorm:"not null;default:0"`
	SavesCount    int64 `gorm:"not null;default:0"`
	ResharesCount int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;index:idx_posts_created_id,priority:1"`
	ExpiresAt *time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Post) TableName() string {
	return "posts"
}

// Validate checks the scope invariants: exactly one of circle_id,
// direct_target_id and story_audience is set, and only for the matching scope.
func (p *Post) Validate() error {
	set := 0
	for _, present := range []bool{p.CircleID != nil, p.DirectTargetID != nil, p.StoryAudience != nil} {
		if present {
			set++
		}
	}

	var ok bool
	switch p.Scope {
	case ScopeCircle:
		ok = p.CircleID != nil && set == 1
	case ScopeDirect:
		ok = p.DirectTargetID != nil && set == 1
	case ScopeStory:
		ok = p.StoryAudience != nil && set == 1 && p.ExpiresAt != nil
	case ScopePublic, ScopeFollowers, ScopeFriends, ScopePrivate:
		ok = set == 0 && p.ExpiresAt == nil
	default:
		return fmt.Errorf("%w: post %d has unknown scope %q", ErrInvalidPost, p.ID, p.Scope)
	}

	if !ok {
		return fmt.Errorf("%w: post %d violates %s scope invariants", ErrInvalidPost, p.ID, p.Scope)
	}
	return nil
}

// GroupKey identifies logically-equivalent memories published through
// several client-side variants.
func (p *Post) GroupKey() string {
	if p.ClientGroupKey == nil || *p.ClientGroupKey == "" {
		return "id:" + strconv.FormatInt(p.ID, 10)
	}
	prefix, _, _ := strings.Cut(*p.ClientGroupKey, ":")
	return strconv.FormatInt(p.AuthorID, 10) + ":" + prefix
}

// Expired reports whether the post has a TTL that elapsed before now.
func (p *Post) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// Score is the trending engagement score computed from cached counters.
func (p *Post) Score() int64 {
	return p.HeartsCount*2 + p.CommentsCount*3 + p.ResharesCount*4
}

// Reshare is a (post, user) edge; at most one per pair.
type Reshare struct {
	ID        int64     `gorm:"primaryKey;index:idx_reshares_created_id,priority:2"`
	PostID    int64     `gorm:"not null;uniqueIndex:idx_reshares_post_user,priority:1"`
	Post      *Post     `gorm:"foreignKey:PostID"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_reshares_post_user,priority:2"`
	User      *User     `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"not null;index:idx_reshares_created_id,priority:1"`
}

func (Reshare) TableName() string {
	return "reshares"
}

// Follow is a directed follow edge owned by the graph service.
type Follow struct {
	FollowerID int64 `gorm:"primaryKey;autoIncrement:false"`
	FolloweeID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (Follow) TableName() string {
	return "follows"
}

// Friendship is stored once per direction.
type Friendship struct {
	UserID   int64 `gorm:"primaryKey;autoIncrement:false"`
	FriendID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (Friendship) TableName() string {
	return "friendships"
}

type CircleMember struct {
	CircleID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID   int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

func (CircleMember) TableName() string {
	return "circle_members"
}

type Block struct {
	BlockerID int64 `gorm:"primaryKey;autoIncrement:false"`
	BlockedID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

func (Block) TableName() string {
	return "blocks"
}

type Mute struct {
	MuterID int64 `gorm:"primaryKey;autoIncrement:false"`
	MutedID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (Mute) TableName() string {
	return "mutes"
}

// HiddenPost is a per-viewer exclusion of a single memory.
type HiddenPost struct {
	UserID int64 `gorm:"primaryKey;autoIncrement:false"`
	PostID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (HiddenPost) TableName() string {
	return "hidden_posts"
}

// Models lists every table the service reads, in migration order.
func Models() []any {
	return []any{
		&User{}, &Post{}, &Reshare{},
		&Follow{}, &Friendship{}, &CircleMember{}, &Block{}, &Mute{}, &HiddenPost{},
	}
}
