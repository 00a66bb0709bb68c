package adapter

import (
	"context"
	"time"
)

// Locker is a short-lived distributed mutex keyed by string.
type Locker interface {
	// TryLock returns a token on success, or domain.ErrConcurrencyConflict when the key
	// stays held after a few attempts.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
