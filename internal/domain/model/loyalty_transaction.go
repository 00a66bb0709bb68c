package model

import (
	"fmt"
	"time"

	"shopdesk-loyalty/internal/domain"
)

type TransactionType string

const (
	TransactionEarn     TransactionType = "EARN"
	TransactionRedeem   TransactionType = "REDEEM"
	TransactionAdjust   TransactionType = "ADJUST"
	TransactionReferral TransactionType = "REFERRAL"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionEarn, TransactionRedeem, TransactionAdjust, TransactionReferral:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidArgument, s)
}

// ValidateDelta enforces the sign each type may carry.
func (t TransactionType) ValidateDelta(delta int64) error {
	switch t {
	case TransactionEarn, TransactionReferral:
		if delta <= 0 {
			return fmt.Errorf("%w: %s requires a positive delta", domain.ErrInvalidArgument, t)
		}
	case TransactionRedeem:
		if delta >= 0 {
			return fmt.Errorf("%w: %s requires a negative delta", domain.ErrInvalidArgument, t)
		}
	case TransactionAdjust:
		if delta == 0 {
			return fmt.Errorf("%w: %s requires a non-zero delta", domain.ErrInvalidArgument, t)
		}
	default:
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidArgument, string(t))
	}
	return nil
}

// CountsTowardLifetime reports whether the delta moves lifetime points, which drive tiers.
// Spending points never demotes a customer.
func (t TransactionType) CountsTowardLifetime() bool {
	return t != TransactionRedeem
}

// LoyaltyTransaction is an append-only ledger row.
type LoyaltyTransaction struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	Type         TransactionType `json:"type"`
	Points       int64           `json:"points"`
	BalanceAfter int64           `json:"balance_after"`
	Description  string          `json:"description"`
	ReferenceID  *string         `json:"reference_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionInput is what callers hand to the ledger.
type TransactionInput struct {
	CustomerID  string
	Type        TransactionType
	Delta       int64
	Description string
	ReferenceID *string
}

// TransactionFilter narrows ledger history queries.
type TransactionFilter struct {
	Type   *TransactionType
	Limit  int
	Offset int
}
