package feedclient

import (
	"context"
	"iter"
	"strconv"
	"time"

	"resty.dev/v3"
)

const (
	homePath     = "/v1/feed/home"
	profilePath  = "/v1/users/{userID}/feed"
	trendingPath = "/v1/feed/trending"
	searchPath   = "/v1/search/memories"
)

type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type Reshare struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `json:"user"`
}

type ResharePreview struct {
	CountInWindow   int    `json:"count_in_window"`
	Users           []User `json:"users"`
	HasMoreInWindow bool   `json:"has_more_in_window"`
}

// Row is one feed entry.
type Row struct {
	ID             int64      `json:"id"`
	AuthorID       int64      `json:"author_id"`
	Author         User       `json:"author"`
	Body           string     `json:"body"`
	Scope          string     `json:"scope"`
	CircleID       *int64     `json:"circle_id"`
	DirectTargetID *int64     `json:"direct_target_id"`
	StoryAudience  *string    `json:"story_audience"`
	ClientGroupKey *string    `json:"client_group_key"`
	HeartsCount    int64      `json:"hearts_count"`
	CommentsCount  int64      `json:"comments_count"`
	SavesCount     int64      `json:"saves_count"`
	ResharesCount  int64      `json:"reshares_count"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at"`

	FeedType       string         `json:"feed_type"`
	Reshare        *Reshare       `json:"reshare"`
	ResharePreview ResharePreview `json:"reshare_preview"`
	Score          *int64         `json:"score"`
}

type Page struct {
	Data       []Row   `json:"data"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// Query selects a page. Zero values leave the choice to the server.
type Query struct {
	Limit  int
	Cursor string
}

func (q Query) apply(r *resty.Request) *resty.Request {
	if q.Limit > 0 {
		r.SetQueryParam("limit", strconv.Itoa(q.Limit))
	}
	if q.Cursor != "" {
		r.SetQueryParam("cursor", q.Cursor)
	}
	return r
}

func (c *Client) Home(ctx context.Context, q Query) (*Page, error) {
	return c.get(q.apply(c.r(ctx)), homePath)
}

func (c *Client) Profile(ctx context.Context, userID int64, q Query) (*Page, error) {
	return c.get(q.apply(c.r(ctx)).SetPathParam("userID", strconv.FormatInt(userID, 10)), profilePath)
}

func (c *Client) Search(ctx context.Context, text string, q Query) (*Page, error) {
	return c.get(q.apply(c.r(ctx)).SetQueryParam("q", text), searchPath)
}

// Trending is not paginated: only the limit of q is used.
func (c *Client) Trending(ctx context.Context, q Query) (*Page, error) {
	return c.get(Query{Limit: q.Limit}.apply(c.r(ctx)), trendingPath)
}

func (c *Client) get(r *resty.Request, path string) (*Page, error) {
	res, err := r.
		SetResult(&Page{}).
		SetError(&APIError{}).
		Get(path)
	if err != nil {
		return nil, err
	}

	if res.IsError() {
		apiErr, _ := res.Error().(*APIError)
		if apiErr == nil {
			apiErr = &APIError{}
		}
		apiErr.Status = res.StatusCode()
		return nil, apiErr
	}

	return res.Result().(*Page), nil
}

// Fetch loads one page of a feed.
type Fetch func(ctx context.Context, q Query) (*Page, error)

// Rows walks a feed page by page, following next_cursor until the server
// reports no more rows or maxPages pages were read. maxPages <= 0 means no
// bound.
func Rows(ctx context.Context, fetch Fetch, q Query, maxPages int) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for pages := 0; maxPages <= 0 || pages < maxPages; pages++ {
			page, err := fetch(ctx, q)
			if err != nil {
				yield(Row{}, err)
				return
			}

			for _, row := range page.Data {
				if !yield(row, nil) {
					return
				}
			}

			if !page.HasMore || page.NextCursor == nil {
				return
			}
			q.Cursor = *page.NextCursor
		}
	}
}
