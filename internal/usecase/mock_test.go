//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/adapter"
	"shopdesk-loyalty/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func ptr[T any](v T) *T { return &v }

// =============================
// In-memory store
// =============================

// memTx is the handle passed to callbacks by memStore.WithTx.
type memTx struct{}

// memStore backs every repository port with maps. WithTx runs one callback at a time and
// restores a snapshot when the callback fails, which gives tests the same all-or-nothing
// and per-row serialization guarantees as Postgres row locks.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts    map[string]model.LoyaltyAccount
	ledger      []model.LoyaltyTransaction
	rewards     map[string]model.Reward
	redemptions []model.RewardRedemption
	events      []model.OutboxEvent
	subs        []model.Subscription

	// conflicts makes the next n WithTx calls fail with ErrConcurrencyConflict.
	conflicts int
	txCalls   int
	inTx      bool

	// Failure injection, consulted inside the matching repository call.
	AppendEventErr error
	AppendTxErr    error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]model.LoyaltyAccount{},
		rewards:  map[string]model.Reward{},
	}
}

type memSnapshot struct {
	accounts    map[string]model.LoyaltyAccount
	ledger      []model.LoyaltyTransaction
	rewards     map[string]model.Reward
	redemptions []model.RewardRedemption
	events      []model.OutboxEvent
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		accounts:    make(map[string]model.LoyaltyAccount, len(s.accounts)),
		rewards:     make(map[string]model.Reward, len(s.rewards)),
		ledger:      append([]model.LoyaltyTransaction(nil), s.ledger...),
		redemptions: append([]model.RewardRedemption(nil), s.redemptions...),
		events:      append([]model.OutboxEvent(nil), s.events...),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.rewards {
		snap.rewards[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.rewards = snap.rewards
	s.ledger = snap.ledger
	s.redemptions = snap.redemptions
	s.events = snap.events
}

var _ repository.TransactionManager = (*memStore)(nil)

func (s *memStore) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.txCalls++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return domain.ErrConcurrencyConflict
	}
	s.mu.Unlock()

	snap := s.snapshot()
	s.setInTx(true)
	defer s.setInTx(false)
	if err := fn(ctx, memTx{}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) setInTx(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inTx = v
}

func requireMemTx(tx repository.Tx) error {
	if _, ok := tx.(memTx); !ok {
		return domain.ErrInvalidExecContext
	}
	return nil
}

// Helpers used by tests to seed and inspect state.

func (s *memStore) putReward(r *model.Reward) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards[r.ID] = *r
}

func (s *memStore) reward(id string) model.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewards[id]
}

func (s *memStore) account(id string) model.LoyaltyAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

func (s *memStore) ledgerFor(customerID string) []model.LoyaltyTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LoyaltyTransaction
	for _, t := range s.ledger {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) ledgerSum(customerID string) int64 {
	var sum int64
	for _, t := range s.ledgerFor(customerID) {
		sum += t.Points
	}
	return sum
}

func (s *memStore) counts() (ledger, redemptions, events int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger), len(s.redemptions), len(s.events)
}

// corrupt writes a balance without a ledger row, simulating a bypassed ledger.
func (s *memStore) corrupt(customerID string, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[customerID]
	a.Points = points
	s.accounts[customerID] = a
}

// ---- Accounts ----

type memAccounts struct{ s *memStore }

var _ repository.LoyaltyAccountRepository = memAccounts{}

func (r memAccounts) Create(ctx context.Context, tx repository.Tx, a *model.LoyaltyAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[a.CustomerID]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.accounts[a.CustomerID] = *a
	return nil
}

func (r memAccounts) FindByID(ctx context.Context, tx repository.Tx, customerID string) (*model.LoyaltyAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r memAccounts) FindByIDForUpdate(ctx context.Context, tx repository.Tx, customerID string) (*model.LoyaltyAccount, error) {
	if err := requireMemTx(tx); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, tx, customerID)
}

func (r memAccounts) UpdateBalance(ctx context.Context, tx repository.Tx, a *model.LoyaltyAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.accounts[a.CustomerID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != a.Version {
		return domain.ErrConcurrencyConflict
	}
	a.Version++
	cur.Points, cur.LifetimePoints, cur.Tier, cur.Version, cur.UpdatedAt = a.Points, a.LifetimePoints, a.Tier, a.Version, a.UpdatedAt
	r.s.accounts[a.CustomerID] = cur
	return nil
}

func (r memAccounts) SetReferralCode(ctx context.Context, tx repository.Tx, customerID, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.accounts {
		if a.ReferralCode != nil && *a.ReferralCode == code && id != customerID {
			return domain.ErrAlreadyExists
		}
	}
	a, ok := r.s.accounts[customerID]
	if !ok {
		return domain.ErrNotFound
	}
	if a.ReferralCode != nil {
		return domain.ErrAlreadyExists
	}
	a.ReferralCode = ptr(code)
	r.s.accounts[customerID] = a
	return nil
}

func (r memAccounts) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.LoyaltyAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.ReferralCode != nil && *a.ReferralCode == code {
			cp := a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Ledger ----

type memLedger struct{ s *memStore }

var _ repository.LoyaltyTransactionRepository = memLedger{}

func (r memLedger) Append(ctx context.Context, tx repository.Tx, t *model.LoyaltyTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AppendTxErr != nil {
		return r.s.AppendTxErr
	}
	r.s.ledger = append(r.s.ledger, *t)
	return nil
}

func (r memLedger) SumByCustomer(ctx context.Context, tx repository.Tx, customerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum int64
	for _, t := range r.s.ledger {
		if t.CustomerID == customerID {
			sum += t.Points
		}
	}
	return sum, nil
}

func (r memLedger) ListByCustomer(ctx context.Context, tx repository.Tx, customerID string, f model.TransactionFilter) ([]*model.LoyaltyTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.LoyaltyTransaction
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		t := r.s.ledger[i]
		if t.CustomerID != customerID || (f.Type != nil && t.Type != *f.Type) {
			continue
		}
		out = append(out, &t)
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

// ---- Rewards ----

type memRewards struct{ s *memStore }

var _ repository.RewardRepository = memRewards{}

func (r memRewards) Save(ctx context.Context, tx repository.Tx, rw *model.Reward) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rw
	if cur, ok := r.s.rewards[rw.ID]; ok {
		cp.UsageCount = cur.UsageCount
	}
	r.s.rewards[rw.ID] = cp
	return nil
}

func (r memRewards) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rw, ok := r.s.rewards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rw, nil
}

func (r memRewards) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	if err := requireMemTx(tx); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, tx, id)
}

func (r memRewards) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Reward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Reward
	for _, rw := range r.s.rewards {
		if rw.Active {
			cp := rw
			out = append(out, &cp)
		}
	}
	// Map order is random; the use case must impose its own.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memRewards) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rw, ok := r.s.rewards[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if rw.UsageLimit != nil && rw.UsageCount >= *rw.UsageLimit {
		return 0, &domain.UsageLimitReachedError{RewardID: id, Limit: *rw.UsageLimit}
	}
	rw.UsageCount++
	r.s.rewards[id] = rw
	return rw.UsageCount, nil
}

// ---- Redemptions ----

type memRedemptions struct{ s *memStore }

var _ repository.RedemptionRepository = memRedemptions{}

func (r memRedemptions) Create(ctx context.Context, tx repository.Tx, rd *model.RewardRedemption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.redemptions = append(r.s.redemptions, *rd)
	return nil
}

func (r memRedemptions) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RewardRedemption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rd := range r.s.redemptions {
		if rd.ID == id {
			cp := rd
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memRedemptions) ListByCustomer(ctx context.Context, tx repository.Tx, customerID string, limit, offset int) ([]*model.RewardRedemption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.RewardRedemption
	for i := len(r.s.redemptions) - 1; i >= 0; i-- {
		if rd := r.s.redemptions[i]; rd.CustomerID == customerID {
			out = append(out, &rd)
		}
	}
	return out, nil
}

// ---- Outbox ----

type memOutbox struct{ s *memStore }

var _ repository.OutboxRepository = memOutbox{}

func (r memOutbox) Append(ctx context.Context, tx repository.Tx, e *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AppendEventErr != nil {
		return r.s.AppendEventErr
	}
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r memOutbox) FetchUnpublished(ctx context.Context, tx repository.Tx, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.events {
		if e.PublishedAt == nil && len(out) < limit {
			cp := e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memOutbox) MarkPublished(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		for i := range r.s.events {
			if r.s.events[i].ID == id {
				r.s.events[i].PublishedAt = &at
			}
		}
	}
	return nil
}

// ---- Subscriptions ----

// MockSubscriptionRepo counts reads so tests can assert the gate is side-effect free.
type MockSubscriptionRepo struct {
	mu    sync.Mutex
	rows  []model.Subscription
	Saves int

	FindActiveForUserFunc func(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.Subscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) FindActiveForUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.Subscription, error) {
	if m.FindActiveForUserFunc != nil {
		return m.FindActiveForUserFunc(ctx, tx, userID, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Deliberately unfiltered beyond the user: the resolver must re-check status and dates.
	var out []*model.Subscription
	for _, s := range m.rows {
		if s.UserID == userID {
			cp := s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	m.rows = append(m.rows, *s)
	return nil
}

// =============================
// Adapters
// =============================

// ---- In-memory Locker (implements adapter.Locker) ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
	seq   int
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if _, taken := l.held[key]; taken {
		return "", domain.ErrConcurrencyConflict
	}
	l.seq++
	token := fmt.Sprintf("tok-%d", l.seq)
	l.held[key] = token
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

func (l *MockLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
