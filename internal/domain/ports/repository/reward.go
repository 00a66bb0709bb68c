package repository

import (
	"context"

	"shopdesk-loyalty/internal/domain/model"
)

type RewardRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Reward) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Reward, error)
	// FindByIDForUpdate locks the reward row until tx ends.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Reward, error)
	// ListActive returns rewards with active = true; validity windows are filtered by callers.
	ListActive(ctx context.Context, tx Tx) ([]*model.Reward, error)
	// IncrementUsage adds one use. It returns domain.ErrUsageLimitReached if the cap is full.
	IncrementUsage(ctx context.Context, tx Tx, id string) (int64, error)
}

// RewardCacheInvalidator is implemented by caching reward repositories. Writers that change
// a reward inside a transaction call Invalidate once that transaction has committed.
type RewardCacheInvalidator interface {
	Invalidate(ctx context.Context, id string)
}
