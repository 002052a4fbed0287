package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"memoria/internal/core"
	"memoria/internal/visibility"
)

type Request struct {
	Viewer *visibility.Context
	// After is the exclusive start position, nil for the newest item.
	After *core.Cursor
	// Want is how many predicate-passing items to collect.
	Want int
	Now  time.Time
}

// Source yields predicate-passing items in feed order.
type Source interface {
	Fetch(ctx context.Context, req Request) (Batch, error)
}

// PostSource scans memories.
type PostSource struct {
	Repo           core.PostRepository
	Logger         *slog.Logger
	MaxScanBatches int

	IncludeStories bool
	AuthorID       *int64
	AllAuthors     bool
	Since          *time.Time
	Text           string
}

func (s *PostSource) Fetch(ctx context.Context, req Request) (Batch, error) {
	opts := visibility.Options{IncludeStories: s.IncludeStories, Now: req.Now}
	audience := req.Viewer.Audience(!s.IncludeStories)

	fetch := func(ctx context.Context, after *core.Cursor, limit int) ([]core.Post, error) {
		return s.Repo.ScanPosts(ctx, core.PostQuery{
			Audience:   audience,
			After:      after,
			Limit:      limit,
			Now:        req.Now,
			AuthorID:   s.AuthorID,
			AllAuthors: s.AllAuthors,
			Since:      s.Since,
			Text:       s.Text,
		})
	}

	key := func(p *core.Post) core.Cursor {
		return core.Cursor{CreatedAt: p.CreatedAt, ID: p.ID, Kind: core.KindMemory}
	}

	accept := func(p *core.Post) (Item, bool) {
		if err := p.Validate(); err != nil {
			s.Logger.Warn("Skipping malformed memory", "error", err)
			return Item{}, false
		}
		return MemoryItem(p), visibility.Visible(p, req.Viewer, opts)
	}

	return scan(ctx, req, s.MaxScanBatches, core.KindMemory, fetch, key, accept)
}

var errMissingPost = errors.New("reshare without its memory")

// ReshareSource scans reshares by the viewer's relevant users, or by a
// single resharer on the profile surface.
type ReshareSource struct {
	Repo           core.ReshareRepository
	Logger         *slog.Logger
	MaxScanBatches int

	ResharerID *int64
}

func (s *ReshareSource) Fetch(ctx context.Context, req Request) (Batch, error) {
	opts := visibility.Options{Now: req.Now}

	resharers := req.Viewer.RelevantUserIDs()
	if s.ResharerID != nil {
		resharers = []int64{*s.ResharerID}
	}

	fetch := func(ctx context.Context, after *core.Cursor, limit int) ([]core.Reshare, error) {
		return s.Repo.ScanReshares(ctx, core.ReshareQuery{
			Audience:    req.Viewer.Audience(true),
			After:       after,
			Limit:       limit,
			Now:         req.Now,
			ResharerIDs: resharers,
		})
	}

	key := func(r *core.Reshare) core.Cursor {
		return core.Cursor{CreatedAt: r.CreatedAt, ID: r.ID, Kind: core.KindReshare}
	}

	accept := func(r *core.Reshare) (Item, bool) {
		if r.Post == nil {
			s.Logger.Warn("Skipping malformed reshare", "reshare_id", r.ID, "error", errMissingPost)
			return Item{}, false
		}
		if err := r.Post.Validate(); err != nil {
			s.Logger.Warn("Skipping malformed reshare", "reshare_id", r.ID, "error", err)
			return Item{}, false
		}
		if req.Viewer.Excludes(r.UserID) {
			return Item{}, false
		}
		return ReshareItem(r), visibility.Visible(r.Post, req.Viewer, opts)
	}

	return scan(ctx, req, s.MaxScanBatches, core.KindReshare, fetch, key, accept)
}

// scan pulls raw rows in chunks of req.Want until req.Want of them are
// accepted, the table runs out, or maxBatches chunks were read.
func scan[T any](
	ctx context.Context,
	req Request,
	maxBatches int,
	kind core.ItemKind,
	fetch func(ctx context.Context, after *core.Cursor, limit int) ([]T, error),
	key func(*T) core.Cursor,
	accept func(*T) (Item, bool),
) (Batch, error) {
	batch := Batch{Kind: kind}
	if req.Want <= 0 {
		return batch, nil
	}

	after := req.After
	for range max(maxBatches, 1) {
		rows, err := fetch(ctx, after, req.Want)
		if err != nil {
			return Batch{}, err
		}

		for i := range rows {
			row := &rows[i]
			k := key(row)
			after = &k
			batch.Last = &k

			item, ok := accept(row)
			if !ok {
				continue
			}

			batch.Items = append(batch.Items, item)
			if len(batch.Items) == req.Want {
				batch.More = i < len(rows)-1 || len(rows) == req.Want
				return batch, nil
			}
		}

		if len(rows) < req.Want {
			return batch, nil
		}
	}

	batch.More = true
	return batch, nil
}
