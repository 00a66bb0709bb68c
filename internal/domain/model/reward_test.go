//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"shopdesk-loyalty/internal/domain"
)

func TestReward_ListedAndUnavailability(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	cases := []struct {
		name   string
		r      *Reward
		listed bool
		reason string
	}{
		{"nil", nil, false, domain.RewardMissing},
		{"open", &Reward{Active: true}, true, ""},
		{"inactive", &Reward{Active: false}, false, domain.RewardInactive},
		{"not yet valid", &Reward{Active: true, ValidFrom: &future}, true, domain.RewardNotYetValid},
		{"expired", &Reward{Active: true, ValidUntil: &past}, false, domain.RewardExpired},
		{"until now", &Reward{Active: true, ValidUntil: &now}, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.r != nil {
				if got := tc.r.Listed(now); got != tc.listed {
					t.Errorf("Listed = %v, want %v", got, tc.listed)
				}
			}
			if got := tc.r.Unavailability(now); got != tc.reason {
				t.Errorf("Unavailability = %q, want %q", got, tc.reason)
			}
		})
	}
}

func TestReward_Exhausted(t *testing.T) {
	limit := int64(2)
	r := &Reward{UsageLimit: &limit, UsageCount: 1}
	if r.Exhausted() {
		t.Fatal("1 of 2 used should not be exhausted")
	}
	r.UsageCount = 2
	if !r.Exhausted() {
		t.Fatal("2 of 2 used should be exhausted")
	}
	if (&Reward{UsageCount: 1000}).Exhausted() {
		t.Fatal("no limit means never exhausted")
	}
}

func TestReward_Validate(t *testing.T) {
	good, err := NewReward("r1", "Coffee", 100, TierBronze)
	if err != nil {
		t.Fatalf("NewReward: %v", err)
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid reward, got %v", err)
	}

	neg, zero := int64(-1), int64(0)
	from := time.Now()
	until := from.Add(-time.Hour)
	bad := []*Reward{
		{ID: "", Name: "x", PointsCost: 1, MinimumTier: TierBronze},
		{ID: "r", Name: "x", PointsCost: 0, MinimumTier: TierBronze},
		{ID: "r", Name: "x", PointsCost: 1, MinimumTier: Tier("DIAMOND")},
		{ID: "r", Name: "x", PointsCost: 1, MinimumTier: TierBronze, UsageLimit: &neg},
		{ID: "r", Name: "x", PointsCost: 1, MinimumTier: TierBronze, UsageLimit: &zero},
		{ID: "r", Name: "x", PointsCost: 1, MinimumTier: TierBronze, ValidFrom: &from, ValidUntil: &until},
	}
	for i, r := range bad {
		if err := r.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}
