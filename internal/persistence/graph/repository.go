package graph

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"memoria/internal/core"
)

// Repository reads the relationship tables maintained by the graph service.
type Repository struct {
	DB core.DB
}

func (r *Repository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.pluck(ctx, "following", &core.Follow{}, "followee_id", "follower_id = ?", userID)
}

func (r *Repository) FriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.pluck(ctx, "friends", &core.Friendship{}, "friend_id", "user_id = ?", userID)
}

func (r *Repository) CircleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.pluck(ctx, "circles", &core.CircleMember{}, "circle_id", "user_id = ?", userID)
}

func (r *Repository) MutedIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.pluck(ctx, "muted", &core.Mute{}, "muted_id", "muter_id = ?", userID)
}

func (r *Repository) HiddenPostIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.pluck(ctx, "hidden posts", &core.HiddenPost{}, "post_id", "user_id = ?", userID)
}

// BlockedIDs returns both the users userID blocked and the users who blocked userID.
func (r *Repository) BlockedIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64

	err := r.DB.Guard(ctx, func(tx *gorm.DB) error {
		return tx.Raw(
			`SELECT blocked_id AS id FROM blocks WHERE blocker_id = ?
				UNION
				SELECT blocker_id AS id FROM blocks WHERE blocked_id = ?`,
			userID, userID,
		).Scan(&ids).Error
	})
	if err != nil {
		return nil, fmt.Errorf("blocked ids of %d: %w", userID, err)
	}

	return ids, nil
}

func (r *Repository) pluck(ctx context.Context, what string, model any, column, cond string, userID int64) ([]int64, error) {
	var ids []int64

	err := r.DB.Guard(ctx, func(tx *gorm.DB) error {
		return tx.Model(model).Where(cond, userID).Pluck(column, &ids).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s of %d: %w", what, userID, err)
	}

	return ids, nil
}
