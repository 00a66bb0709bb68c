//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/usecase"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv wires every loyalty use case over one memStore.
type testEnv struct {
	store      *memStore
	locker     *MockLocker
	ledger     usecase.LedgerUseCase
	redemption usecase.RedemptionUseCase
	referral   usecase.ReferralUseCase
	catalog    usecase.CatalogUseCase
}

func newTestEnv(t *testing.T, opts usecase.LedgerOptions) *testEnv {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedClock(testNow)
	}
	s := newMemStore()
	locker := NewMockLocker()
	log := newTestLogger()
	return &testEnv{
		store:  s,
		locker: locker,
		ledger: usecase.NewLedgerUseCase(memAccounts{s}, memLedger{s}, s, opts, log),
		redemption: usecase.NewRedemptionUseCase(memAccounts{s}, memLedger{s}, memRewards{s}, memRedemptions{s}, memOutbox{s}, s, locker,
			opts, usecase.RedemptionOptions{Window: 48 * time.Hour}, log),
		referral: usecase.NewReferralUseCase(memAccounts{s}, s, usecase.ReferralOptions{}, log),
		catalog:  usecase.NewCatalogUseCase(memRewards{s}, log),
	}
}

// openWith opens an account and earns points through the ledger.
func (e *testEnv) openWith(t *testing.T, customerID string, points int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.ledger.OpenAccount(ctx, customerID); err != nil {
		t.Fatalf("open account: %v", err)
	}
	if points > 0 {
		_, err := e.ledger.RecordTransaction(ctx, model.TransactionInput{
			CustomerID: customerID, Type: model.TransactionEarn, Delta: points, Description: "seed",
		})
		if err != nil {
			t.Fatalf("seed points: %v", err)
		}
	}
}

func (e *testEnv) addReward(t *testing.T, id string, cost int64, minTier model.Tier, limit *int64) *model.Reward {
	t.Helper()
	rw, err := model.NewReward(id, "Reward "+id, cost, minTier)
	if err != nil {
		t.Fatalf("new reward: %v", err)
	}
	rw.UsageLimit = limit
	e.store.putReward(rw)
	return rw
}
