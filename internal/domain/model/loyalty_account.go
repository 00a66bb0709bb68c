package model

import (
	"time"

	"shopdesk-loyalty/internal/domain"
)

// LoyaltyAccount is a customer's loyalty state. Points, LifetimePoints and Tier only change
// through a recorded LoyaltyTransaction in the same database transaction.
type LoyaltyAccount struct {
	CustomerID     string
	Points         int64
	LifetimePoints int64
	Tier           Tier
	ReferralCode   *string // nil until first generated
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewLoyaltyAccount opens an empty account in the lowest tier.
func NewLoyaltyAccount(customerID string) (*LoyaltyAccount, error) {
	if customerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &LoyaltyAccount{
		CustomerID: customerID,
		Tier:       LowestTier(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (a *LoyaltyAccount) IsZero() bool { return a == nil || a.CustomerID == "" }

// Balance is a read-only snapshot of an account.
type Balance struct {
	CustomerID     string `json:"customer_id"`
	Points         int64  `json:"points"`
	LifetimePoints int64  `json:"lifetime_points"`
	Tier           Tier   `json:"tier"`
}

func (a *LoyaltyAccount) Balance() Balance {
	return Balance{
		CustomerID:     a.CustomerID,
		Points:         a.Points,
		LifetimePoints: a.LifetimePoints,
		Tier:           a.Tier,
	}
}
