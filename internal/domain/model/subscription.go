package model

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

type BillingInterval string

const (
	BillingMonthly BillingInterval = "MONTHLY"
	BillingYearly  BillingInterval = "YEARLY"
	BillingNone    BillingInterval = "NONE" // free-tier grants
)

// Subscription is read from the subscription store; status transitions happen elsewhere.
type Subscription struct {
	ID              string
	UserID          string
	PlanID          string
	PlanName        string
	Status          SubscriptionStatus
	BillingInterval BillingInterval
	StartAt         time.Time
	EndAt           *time.Time // nil rows are treated as absent
	Features        []string
	AmountMinor     int64
	Currency        string
	CreatedAt       time.Time
}

// ActiveAt reports whether the subscription grants entitlements at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil || s.Status != SubscriptionStatusActive || s.EndAt == nil {
		return false
	}
	return !s.EndAt.Before(now)
}

// HasFeature is an exact match on the feature identifier.
func (s *Subscription) HasFeature(featureID string) bool {
	if s == nil {
		return false
	}
	for _, f := range s.Features {
		if f == featureID {
			return true
		}
	}
	return false
}

// NewerThan orders subscriptions by creation time, then id, so the most recent wins.
func (s *Subscription) NewerThan(o *Subscription) bool {
	if o == nil {
		return true
	}
	if !s.CreatedAt.Equal(o.CreatedAt) {
		return s.CreatedAt.After(o.CreatedAt)
	}
	return s.ID > o.ID
}
