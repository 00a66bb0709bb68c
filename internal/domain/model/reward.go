package model

import (
	"fmt"
	"time"

	"shopdesk-loyalty/internal/domain"
)

// Reward is a catalog entry. UsageCount only grows, and only through a redemption.
type Reward struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PointsCost  int64      `json:"points_cost"`
	MinimumTier Tier       `json:"minimum_tier"`
	Active      bool       `json:"active"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	UsageLimit  *int64     `json:"usage_limit,omitempty"`
	UsageCount  int64      `json:"usage_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewReward validates and constructs an active reward.
func NewReward(id, name string, cost int64, minTier Tier) (*Reward, error) {
	if id == "" || name == "" || cost <= 0 || !minTier.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Reward{
		ID:          id,
		Name:        name,
		PointsCost:  cost,
		MinimumTier: minTier,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Listed is the catalog listing filter: active and not past ValidUntil.
func (r *Reward) Listed(now time.Time) bool {
	if !r.Active {
		return false
	}
	return r.ValidUntil == nil || !r.ValidUntil.Before(now)
}

// Unavailability returns the reason r cannot be redeemed at now, or "" if it can.
func (r *Reward) Unavailability(now time.Time) string {
	switch {
	case r == nil:
		return domain.RewardMissing
	case !r.Active:
		return domain.RewardInactive
	case r.ValidFrom != nil && now.Before(*r.ValidFrom):
		return domain.RewardNotYetValid
	case r.ValidUntil != nil && now.After(*r.ValidUntil):
		return domain.RewardExpired
	}
	return ""
}

// Exhausted reports whether the usage cap has been reached.
func (r *Reward) Exhausted() bool {
	return r.UsageLimit != nil && r.UsageCount >= *r.UsageLimit
}

// Validate checks a catalog entry before it is saved.
func (r *Reward) Validate() error {
	switch {
	case r.ID == "" || r.Name == "":
		return fmt.Errorf("%w: reward id and name are required", domain.ErrInvalidArgument)
	case r.PointsCost <= 0:
		return fmt.Errorf("%w: points cost must be positive", domain.ErrInvalidArgument)
	case !r.MinimumTier.Valid():
		return fmt.Errorf("%w: unknown minimum tier %q", domain.ErrInvalidArgument, string(r.MinimumTier))
	case r.UsageLimit != nil && *r.UsageLimit <= 0:
		return fmt.Errorf("%w: usage limit must be positive", domain.ErrInvalidArgument)
	case r.ValidFrom != nil && r.ValidUntil != nil && r.ValidUntil.Before(*r.ValidFrom):
		return fmt.Errorf("%w: valid_until is before valid_from", domain.ErrInvalidArgument)
	}
	return nil
}
