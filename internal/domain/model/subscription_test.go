//go:build !integration

package model

import (
	"testing"
	"time"
)

func TestSubscription_ActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := now.Add(24 * time.Hour)
	ended := now.Add(-time.Second)

	cases := []struct {
		name string
		s    *Subscription
		want bool
	}{
		{"nil", nil, false},
		{"active", &Subscription{Status: SubscriptionStatusActive, EndAt: &end}, true},
		{"ends exactly now", &Subscription{Status: SubscriptionStatusActive, EndAt: &now}, true},
		{"already ended", &Subscription{Status: SubscriptionStatusActive, EndAt: &ended}, false},
		{"no end date", &Subscription{Status: SubscriptionStatusActive}, false},
		{"cancelled", &Subscription{Status: SubscriptionStatusCancelled, EndAt: &end}, false},
	}
	for _, tc := range cases {
		if got := tc.s.ActiveAt(now); got != tc.want {
			t.Errorf("%s: ActiveAt = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSubscription_HasFeatureAndNewerThan(t *testing.T) {
	s := &Subscription{ID: "b", Features: []string{"reports", "inventory"}, CreatedAt: time.Unix(100, 0)}
	if !s.HasFeature("reports") || s.HasFeature("Reports") || s.HasFeature("payroll") {
		t.Fatal("HasFeature must be an exact match")
	}
	if (*Subscription)(nil).HasFeature("reports") {
		t.Fatal("nil subscription has no features")
	}

	older := &Subscription{ID: "z", CreatedAt: time.Unix(50, 0)}
	sameTimeLowerID := &Subscription{ID: "a", CreatedAt: time.Unix(100, 0)}
	if !s.NewerThan(older) || older.NewerThan(s) {
		t.Fatal("later created_at should win")
	}
	if !s.NewerThan(sameTimeLowerID) {
		t.Fatal("ties should break on the greater id")
	}
	if !s.NewerThan(nil) {
		t.Fatal("anything is newer than nil")
	}
}
