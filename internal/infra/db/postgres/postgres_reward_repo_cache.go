package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/adapter"
	"shopdesk-loyalty/internal/domain/ports/repository"
	"shopdesk-loyalty/internal/infra/metrics"
)

var (
	_ repository.RewardRepository       = (*rewardRepoCacheDecorator)(nil)
	_ repository.RewardCacheInvalidator = (*rewardRepoCacheDecorator)(nil)
)

const rewardListKey = "rewards:active"

func rewardKey(id string) string { return fmt.Sprintf("reward:%s", id) }

// rewardRepoCacheDecorator caches catalog reads. Calls made inside a transaction and all
// locking reads go straight to the inner repository: decisions are never taken on cached rows.
type rewardRepoCacheDecorator struct {
	inner repository.RewardRepository
	cache adapter.Cache
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewRewardRepoCacheDecorator(inner repository.RewardRepository, cache adapter.Cache, ttl time.Duration, logger *zerolog.Logger) repository.RewardRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &rewardRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func (d *rewardRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := rewardKey(id)
	var cached model.Reward
	if d.get(ctx, key, "reward", &cached) {
		return &cached, nil
	}
	rw, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.set(ctx, key, rw)
	return rw, nil
}

func (d *rewardRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Reward, error) {
	if tx != nil {
		return d.inner.ListActive(ctx, tx)
	}
	var cached []*model.Reward
	if d.get(ctx, rewardListKey, "reward_list", &cached) {
		return cached, nil
	}
	list, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	d.set(ctx, rewardListKey, list)
	return list, nil
}

func (d *rewardRepoCacheDecorator) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	return d.inner.FindByIDForUpdate(ctx, tx, id)
}

// For write operations, we must invalidate the cache.
func (d *rewardRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, rw *model.Reward) error {
	if err := d.inner.Save(ctx, tx, rw); err != nil {
		return err
	}
	d.invalidate(ctx, rw.ID)
	return nil
}

// IncrementUsage invalidates right away only when it runs on its own. Inside a transaction
// the caller invalidates after commit, or a concurrent read could re-cache the old count.
func (d *rewardRepoCacheDecorator) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (int64, error) {
	n, err := d.inner.IncrementUsage(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if tx == nil {
		d.invalidate(ctx, id)
	}
	return n, nil
}

func (d *rewardRepoCacheDecorator) Invalidate(ctx context.Context, id string) {
	d.invalidate(ctx, id)
}

func (d *rewardRepoCacheDecorator) get(ctx context.Context, key, kind string, dst interface{}) bool {
	b, err := d.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, adapter.ErrCacheMiss) {
			d.log.Warn().Err(err).Str("key", key).Msg("reward cache read failed")
		}
		metrics.IncCacheRequest(kind, "miss")
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		metrics.IncCacheRequest(kind, "miss")
		return false
	}
	metrics.IncCacheRequest(kind, "hit")
	return true
}

func (d *rewardRepoCacheDecorator) set(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("reward cache write failed")
	}
}

func (d *rewardRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, rewardKey(id), rewardListKey); err != nil {
		d.log.Warn().Err(err).Str("reward_id", id).Msg("reward cache invalidation failed")
	}
}
