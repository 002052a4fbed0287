package posts

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"memoria/internal/core"
	"memoria/internal/persistence"
)

type Repository struct {
	DB core.DB
}

func (r *Repository) ScanPosts(ctx context.Context, q core.PostQuery) ([]core.Post, error) {
	var posts []core.Post

	err := r.DB.Guard(ctx, func(tx *gorm.DB) error {
		tx = tx.Model(&core.Post{}).
			Preload("Author").
			Scopes(
				persistence.Live(q.Now),
				persistence.Exclusions(q.Audience),
				persistence.After("posts", core.KindMemory, q.After),
				persistence.BodyContains(q.Text),
			)

		if q.ByScore {
			tx = tx.Scopes(persistence.TopScored())
		} else {
			tx = tx.Scopes(persistence.Newest("posts"))
		}

		switch {
		case q.AuthorID != nil:
			tx = tx.Where("posts.author_id = ?", *q.AuthorID)
		case !q.AllAuthors:
			tx = tx.Scopes(persistence.Reachable(q.Audience))
		}

		if q.Since != nil {
			tx = tx.Where("posts.created_at >= ?", *q.Since)
		}

		if q.Offset > 0 {
			tx = tx.Offset(q.Offset)
		}

		return tx.Limit(q.Limit).Find(&posts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}

	return posts, nil
}

func (r *Repository) FindPosts(ctx context.Context, ids []int64, now time.Time) ([]core.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var posts []core.Post

	err := r.DB.Guard(ctx, func(tx *gorm.DB) error {
		return tx.Model(&core.Post{}).
			Preload("Author").
			Scopes(persistence.Live(now)).
			Where("posts.id IN ?", ids).
			Find(&posts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}

	return posts, nil
}
