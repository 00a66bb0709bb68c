package repository

import (
	"context"

	"shopdesk-loyalty/internal/domain/model"
)

// LoyaltyTransactionRepository is append-only: there is no update or delete.
type LoyaltyTransactionRepository interface {
	Append(ctx context.Context, tx Tx, t *model.LoyaltyTransaction) error
	SumByCustomer(ctx context.Context, tx Tx, customerID string) (int64, error)
	ListByCustomer(ctx context.Context, tx Tx, customerID string, f model.TransactionFilter) ([]*model.LoyaltyTransaction, error)
}
