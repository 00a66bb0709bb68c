package redis

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"shopdesk-loyalty/internal/domain/ports/adapter"
)

var _ adapter.Cache = (*LocalCache)(nil)

// LocalCache is the in-process fallback used when no Redis URL is configured.
// Entries are per instance, so invalidations do not reach other replicas before the TTL.
type LocalCache struct {
	c *gocache.Cache
}

func NewLocalCache(ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LocalCache{c: gocache.New(ttl, 2*ttl)}
}

func (l *LocalCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return nil, adapter.ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, adapter.ErrCacheMiss
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (l *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b := make([]byte, len(value))
	copy(b, value)
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	l.c.Set(key, b, ttl)
	return nil
}

func (l *LocalCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.c.Delete(k)
	}
	return nil
}
