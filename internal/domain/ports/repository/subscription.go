package repository

import (
	"context"
	"time"

	"shopdesk-loyalty/internal/domain/model"
)

// SubscriptionRepository is the read port onto the subscription store.
type SubscriptionRepository interface {
	// FindActiveForUser returns the user's ACTIVE subscriptions whose end is at or after now,
	// newest first (created_at, then id). An empty slice is not an error.
	FindActiveForUser(ctx context.Context, tx Tx, userID string, now time.Time) ([]*model.Subscription, error)
	// Save is used by seeding and tests; status transitions are owned by billing.
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
}
