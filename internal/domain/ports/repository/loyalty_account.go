package repository

import (
	"context"

	"shopdesk-loyalty/internal/domain/model"
)

type LoyaltyAccountRepository interface {
	// Create inserts a zero-balance account. Returns domain.ErrAlreadyExists if present.
	Create(ctx context.Context, tx Tx, a *model.LoyaltyAccount) error
	FindByID(ctx context.Context, tx Tx, customerID string) (*model.LoyaltyAccount, error)
	// FindByIDForUpdate locks the account row until tx ends. tx must be a live transaction.
	FindByIDForUpdate(ctx context.Context, tx Tx, customerID string) (*model.LoyaltyAccount, error)
	// UpdateBalance writes points, lifetime points and tier, bumping the version.
	UpdateBalance(ctx context.Context, tx Tx, a *model.LoyaltyAccount) error
	// SetReferralCode returns domain.ErrAlreadyExists when the code belongs to someone else.
	SetReferralCode(ctx context.Context, tx Tx, customerID, code string) error
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.LoyaltyAccount, error)
}
