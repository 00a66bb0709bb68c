//go:build !integration

package postgres

import (
	"context"
	"sync"
	"time"

	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/adapter"
	"shopdesk-loyalty/internal/domain/ports/repository"
)

// --- Mocks for Cache Decorator Tests ---

var _ repository.RewardRepository = (*mockInnerRewardRepo)(nil)

// mockInnerRewardRepo mocks the database repository that the reward decorator wraps.
type mockInnerRewardRepo struct {
	SaveFunc              func(ctx context.Context, tx repository.Tx, r *model.Reward) error
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error)
	FindByIDForUpdateFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error)
	ListActiveFunc        func(ctx context.Context, tx repository.Tx) ([]*model.Reward, error)
	IncrementUsageFunc    func(ctx context.Context, tx repository.Tx, id string) (int64, error)
}

func (m *mockInnerRewardRepo) Save(ctx context.Context, tx repository.Tx, r *model.Reward) error {
	return m.SaveFunc(ctx, tx, r)
}
func (m *mockInnerRewardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerRewardRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	return m.FindByIDForUpdateFunc(ctx, tx, id)
}
func (m *mockInnerRewardRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Reward, error) {
	return m.ListActiveFunc(ctx, tx)
}
func (m *mockInnerRewardRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (int64, error) {
	return m.IncrementUsageFunc(ctx, tx, id)
}

var _ adapter.Cache = (*mockCache)(nil)

// mockCache is a map-backed adapter.Cache that records deletions.
type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, adapter.ErrCacheMiss
	}
	return b, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}
