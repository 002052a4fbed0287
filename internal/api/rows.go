package api

import (
	"time"

	"github.com/samber/lo"

	"memoria/internal/core"
	"memoria/internal/cursor"
	"memoria/internal/feed"
	"memoria/internal/trending"
)

type UserRow struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type ReshareRow struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	User      UserRow   `json:"user"`
}

type PreviewRow struct {
	CountInWindow   int       `json:"count_in_window"`
	Users           []UserRow `json:"users"`
	HasMoreInWindow bool      `json:"has_more_in_window"`
}

type FeedRow struct {
	ID             int64               `json:"id"`
	AuthorID       int64               `json:"author_id"`
	Author         UserRow             `json:"author"`
	Body           string              `json:"body"`
	Scope          core.Scope          `json:"scope"`
	CircleID       *int64              `json:"circle_id"`
	DirectTargetID *int64              `json:"direct_target_id"`
	StoryAudience  *core.StoryAudience `json:"story_audience"`
	ClientGroupKey *string             `json:"client_group_key"`
	HeartsCount    int64               `json:"hearts_count"`
	CommentsCount  int64               `json:"comments_count"`
	SavesCount     int64               `json:"saves_count"`
	ResharesCount  int64               `json:"reshares_count"`
	CreatedAt      time.Time           `json:"created_at"`
	ExpiresAt      *time.Time          `json:"expires_at"`

	FeedType       core.ItemKind `json:"feed_type"`
	Reshare        *ReshareRow   `json:"reshare,omitempty"`
	ResharePreview PreviewRow    `json:"reshare_preview"`

	// Score is only reported by the trending surface.
	Score *int64 `json:"score,omitempty"`
}

type FeedResponse struct {
	Data       []FeedRow `json:"data"`
	NextCursor *string   `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}

func toUserRow(u core.User) UserRow {
	return UserRow{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

func toFeedRow(item feed.Item, preview feed.Preview) FeedRow {
	p := item.Post

	row := FeedRow{
		ID:             p.ID,
		AuthorID:       p.AuthorID,
		Author:         toUserRow(lo.FromPtrOr(p.Author, core.User{ID: p.AuthorID})),
		Body:           p.Body,
		Scope:          p.Scope,
		CircleID:       p.CircleID,
		DirectTargetID: p.DirectTargetID,
		StoryAudience:  p.StoryAudience,
		ClientGroupKey: p.ClientGroupKey,
		HeartsCount:    p.HeartsCount,
		CommentsCount:  p.CommentsCount,
		SavesCount:     p.SavesCount,
		ResharesCount:  p.ResharesCount,
		CreatedAt:      p.CreatedAt.UTC(),
		ExpiresAt:      p.ExpiresAt,
		FeedType:       item.Kind,
		ResharePreview: PreviewRow{
			CountInWindow:   preview.CountInWindow,
			Users:           lo.Map(preview.Users, func(u core.User, _ int) UserRow { return toUserRow(u) }),
			HasMoreInWindow: preview.HasMoreInWindow,
		},
	}

	if item.Kind == core.KindReshare {
		rs := item.Reshare
		row.Reshare = &ReshareRow{
			ID:        rs.ID,
			CreatedAt: rs.CreatedAt.UTC(),
			User:      toUserRow(lo.FromPtrOr(rs.User, core.User{ID: rs.UserID})),
		}
	}

	return row
}

func toFeedResponse(a feed.Assembly) FeedResponse {
	resp := FeedResponse{
		Data: lo.Map(a.Entries, func(e feed.Entry, _ int) FeedRow {
			return toFeedRow(e.Item, e.Preview)
		}),
		HasMore: a.HasMore,
	}

	if a.HasMore && a.Next != nil {
		resp.NextCursor = lo.ToPtr(cursor.Encode(*a.Next))
	}

	return resp
}

func toTrendingResponse(entries []trending.Entry) FeedResponse {
	return FeedResponse{
		Data: lo.Map(entries, func(e trending.Entry, _ int) FeedRow {
			row := toFeedRow(feed.MemoryItem(e.Post), feed.Preview{})
			row.Score = lo.ToPtr(e.Score)
			return row
		}),
	}
}
