package repository

import (
	"context"

	"shopdesk-loyalty/internal/domain/model"
)

type RedemptionRepository interface {
	Create(ctx context.Context, tx Tx, r *model.RewardRedemption) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.RewardRedemption, error)
	ListByCustomer(ctx context.Context, tx Tx, customerID string, limit, offset int) ([]*model.RewardRedemption, error)
}
