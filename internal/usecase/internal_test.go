//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
)

func TestGenerateReferralCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := generateReferralCode()
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !strings.HasPrefix(code, referralPrefix) || len(code) != len(referralPrefix)+referralCodeLength {
			t.Fatalf("unexpected code %q", code)
		}
		for _, r := range code[len(referralPrefix):] {
			if !strings.ContainsRune(referralAlphabet, r) {
				t.Fatalf("code %q uses %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 199 {
		t.Errorf("expected codes to be effectively unique, got %d distinct of 200", len(seen))
	}
}

func TestWithConflictRetry(t *testing.T) {
	log := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("should not retry business errors", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, &log, "test", 5, func() error {
			calls++
			return domain.ErrInsufficientPoints
		})
		if !errors.Is(err, domain.ErrInsufficientPoints) || calls != 1 {
			t.Fatalf("expected one call, got %d (%v)", calls, err)
		}
	})

	t.Run("should retry conflicts until one attempt succeeds", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, &log, "test", 3, func() error {
			calls++
			if calls < 3 {
				return fmt.Errorf("update balance: %w", domain.ErrConcurrencyConflict)
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("expected success on the third call, got %d (%v)", calls, err)
		}
	})

	t.Run("should give up after the last attempt", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, &log, "test", 2, func() error {
			calls++
			return domain.ErrConcurrencyConflict
		})
		if !errors.Is(err, domain.ErrConcurrencyConflict) || calls != 2 {
			t.Fatalf("expected a conflict after two calls, got %d (%v)", calls, err)
		}
	})

	t.Run("should stop on context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := withConflictRetry(cctx, &log, "test", 5, func() error {
			calls++
			cancel()
			return domain.ErrConcurrencyConflict
		})
		if !errors.Is(err, context.Canceled) || calls != 1 {
			t.Fatalf("expected cancellation after one call, got %d (%v)", calls, err)
		}
	})
}

func TestCheckRedeemable_Order(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limit := int64(1)
	acct := &model.LoyaltyAccount{CustomerID: "c", Points: 10, Tier: model.TierBronze}
	rw := &model.Reward{ID: "r", PointsCost: 100, MinimumTier: model.TierGold, Active: false, UsageLimit: &limit, UsageCount: 1}

	steps := []struct {
		want error
		fix  func()
	}{
		{domain.ErrRewardUnavailable, func() { rw.Active = true }},
		{domain.ErrInsufficientPoints, func() { acct.Points = 100 }},
		{domain.ErrTierTooLow, func() { acct.Tier = model.TierPlatinum }},
		{domain.ErrUsageLimitReached, func() { rw.UsageCount = 0 }},
	}
	for _, s := range steps {
		if err := checkRedeemable(acct, rw, rw.ID, now); !errors.Is(err, s.want) {
			t.Fatalf("expected %v, but got: %v", s.want, err)
		}
		s.fix()
	}
	if err := checkRedeemable(acct, rw, rw.ID, now); err != nil {
		t.Fatalf("expected a redeemable reward, but got: %v", err)
	}
}
