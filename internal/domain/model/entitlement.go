package model

import "time"

// Reasons reported by the feature gate on denial.
const (
	DenyNoActiveSubscription = "no active subscription"
	DenyRequiresHigherPlan   = "requires higher tier/plan"
)

// AccessDecision is the feature gate's verdict for one (user, feature) pair.
type AccessDecision struct {
	UserID    string `json:"user_id"`
	FeatureID string `json:"feature_id"`
	Granted   bool   `json:"granted"`
	Reason    string `json:"reason,omitempty"`
	PlanID    string `json:"plan_id,omitempty"`
	PlanName  string `json:"plan_name,omitempty"`
}

// Entitlement is the set of features a user may currently use.
type Entitlement struct {
	UserID         string     `json:"user_id"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	PlanID         string     `json:"plan_id,omitempty"`
	PlanName       string     `json:"plan_name,omitempty"`
	Features       []string   `json:"features"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
}
