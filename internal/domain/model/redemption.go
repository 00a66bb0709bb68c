package model

import "time"

// RewardRedemption is immutable once created. PointsUsed snapshots the reward cost.
type RewardRedemption struct {
	ID         string    `json:"id"`
	RewardID   string    `json:"reward_id"`
	CustomerID string    `json:"customer_id"`
	PointsUsed int64     `json:"points_used"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// RedemptionResult is what the engine hands back after a successful redeem.
type RedemptionResult struct {
	Redemption  *RewardRedemption   `json:"redemption"`
	Transaction *LoyaltyTransaction `json:"transaction"`
	Balance     Balance             `json:"balance"`
	Event       RedemptionEvent     `json:"event"`
}
