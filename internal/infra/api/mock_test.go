//go:build !integration

package api_test

import (
	"context"
	"time"

	"shopdesk-loyalty/internal/domain/model"
)

type MockEntitlementUC struct {
	ResolveActiveFunc func(ctx context.Context, userID string) (*model.Subscription, error)
	CheckAccessFunc   func(ctx context.Context, userID, featureID string) (model.AccessDecision, error)
	EntitlementsFunc  func(ctx context.Context, userID string) (model.Entitlement, error)
}

func (m *MockEntitlementUC) ResolveActive(ctx context.Context, userID string) (*model.Subscription, error) {
	return m.ResolveActiveFunc(ctx, userID)
}
func (m *MockEntitlementUC) CheckAccess(ctx context.Context, userID, featureID string) (model.AccessDecision, error) {
	return m.CheckAccessFunc(ctx, userID, featureID)
}
func (m *MockEntitlementUC) Entitlements(ctx context.Context, userID string) (model.Entitlement, error) {
	return m.EntitlementsFunc(ctx, userID)
}

type MockLedgerUC struct {
	OpenAccountFunc       func(ctx context.Context, customerID string) (*model.LoyaltyAccount, error)
	GetBalanceFunc        func(ctx context.Context, customerID string) (model.Balance, error)
	RecordTransactionFunc func(ctx context.Context, in model.TransactionInput) (*model.LoyaltyTransaction, error)
	HistoryFunc           func(ctx context.Context, customerID string, f model.TransactionFilter) ([]*model.LoyaltyTransaction, error)
	VerifyLedgerFunc      func(ctx context.Context, customerID string) error
}

func (m *MockLedgerUC) OpenAccount(ctx context.Context, customerID string) (*model.LoyaltyAccount, error) {
	return m.OpenAccountFunc(ctx, customerID)
}
func (m *MockLedgerUC) GetBalance(ctx context.Context, customerID string) (model.Balance, error) {
	return m.GetBalanceFunc(ctx, customerID)
}
func (m *MockLedgerUC) RecordTransaction(ctx context.Context, in model.TransactionInput) (*model.LoyaltyTransaction, error) {
	return m.RecordTransactionFunc(ctx, in)
}
func (m *MockLedgerUC) History(ctx context.Context, customerID string, f model.TransactionFilter) ([]*model.LoyaltyTransaction, error) {
	return m.HistoryFunc(ctx, customerID, f)
}
func (m *MockLedgerUC) VerifyLedger(ctx context.Context, customerID string) error {
	return m.VerifyLedgerFunc(ctx, customerID)
}

type MockCatalogUC struct {
	ListAvailableFunc func(ctx context.Context, now time.Time) ([]*model.Reward, error)
	GetFunc           func(ctx context.Context, rewardID string) (*model.Reward, error)
	SaveFunc          func(ctx context.Context, r *model.Reward) error
}

func (m *MockCatalogUC) ListAvailable(ctx context.Context, now time.Time) ([]*model.Reward, error) {
	return m.ListAvailableFunc(ctx, now)
}
func (m *MockCatalogUC) Get(ctx context.Context, rewardID string) (*model.Reward, error) {
	return m.GetFunc(ctx, rewardID)
}
func (m *MockCatalogUC) Save(ctx context.Context, r *model.Reward) error {
	return m.SaveFunc(ctx, r)
}

type MockRedemptionUC struct {
	RedeemFunc          func(ctx context.Context, customerID, rewardID string) (*model.RedemptionResult, error)
	ListRedemptionsFunc func(ctx context.Context, customerID string, limit, offset int) ([]*model.RewardRedemption, error)
}

func (m *MockRedemptionUC) Redeem(ctx context.Context, customerID, rewardID string) (*model.RedemptionResult, error) {
	return m.RedeemFunc(ctx, customerID, rewardID)
}
func (m *MockRedemptionUC) ListRedemptions(ctx context.Context, customerID string, limit, offset int) ([]*model.RewardRedemption, error) {
	return m.ListRedemptionsFunc(ctx, customerID, limit, offset)
}

type MockReferralUC struct {
	GetOrCreateCodeFunc func(ctx context.Context, customerID string) (string, error)
	ValidateFunc        func(ctx context.Context, code string) (string, error)
}

func (m *MockReferralUC) GetOrCreateCode(ctx context.Context, customerID string) (string, error) {
	return m.GetOrCreateCodeFunc(ctx, customerID)
}
func (m *MockReferralUC) Validate(ctx context.Context, code string) (string, error) {
	return m.ValidateFunc(ctx, code)
}
