package reshares

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"memoria/internal/core"
	"memoria/internal/persistence"
)

type Repository struct {
	DB core.DB
}

// ScanReshares joins the reshared memory so that deleted, expired and
// excluded memories never reach the caller.
func (r *Repository) ScanReshares(ctx context.Context, q core.ReshareQuery) ([]core.Reshare, error) {
	if len(q.ResharerIDs) == 0 {
		return nil, nil
	}

	var reshares []core.Reshare

	err := r.DB.Guard(ctx, func(tx *gorm.DB) error {
		tx = tx.Model(&core.Reshare{}).
			Select("reshares.*").
			Joins("JOIN posts ON posts.id = reshares.post_id").
			Preload("User").
			Preload("Post").
			Preload("Post.Author").
			Where("reshares.user_id IN ?", q.ResharerIDs).
			Scopes(
				persistence.Live(q.Now),
				persistence.Exclusions(q.Audience),
				persistence.After("reshares", core.KindReshare, q.After),
				persistence.Newest("reshares"),
			)

		if excluded := q.Audience.ExcludedUserIDs; len(excluded) > 0 {
			tx = tx.Where("reshares.user_id NOT IN ?", excluded)
		}

		return tx.Limit(q.Limit).Find(&reshares).Error
	})
	if err != nil {
		return nil, fmt.Errorf("scan reshares: %w", err)
	}

	return reshares, nil
}
