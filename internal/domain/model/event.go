package model

import (
	"encoding/json"
	"time"
)

const EventRewardRedeemed = "loyalty.reward_redeemed"

// RedemptionEvent is published for the notification subsystem after a redemption commits.
type RedemptionEvent struct {
	CustomerID      string    `json:"customer_id"`
	RewardID        string    `json:"reward_id"`
	RedemptionID    string    `json:"redemption_id"`
	PointsUsed      int64     `json:"points_used"`
	RemainingPoints int64     `json:"remaining_points"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// OutboxEvent is a domain event stored alongside the change that produced it.
type OutboxEvent struct {
	ID          string
	Kind        string
	Key         string
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewRedemptionOutboxEvent serializes e for the outbox.
func NewRedemptionOutboxEvent(id string, e RedemptionEvent) (*OutboxEvent, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:        id,
		Kind:      EventRewardRedeemed,
		Key:       e.CustomerID,
		Payload:   b,
		CreatedAt: e.OccurredAt,
	}, nil
}
