package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/infra/metrics"
)

const (
	retryBaseDelay     = 20 * time.Millisecond
	retryJitterPercent = 50
)

// conflictBackoff is exponential from retryBaseDelay with +/-50% jitter, allowing
// attempts-1 retries after the first call.
func conflictBackoff(log *zerolog.Logger, op string, attempts int) retry.Backoff {
	b := retry.NewExponential(retryBaseDelay)
	b = retry.WithJitterPercent(retryJitterPercent, b)
	b = retry.WithMaxRetries(uint64(attempts-1), b)

	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := b.Next()
		if stop {
			return 0, true
		}
		attempt++
		metrics.IncConflictRetry(op)
		log.Warn().Str("op", op).Int("attempt", attempt).Dur("backoff", next).Msg("concurrency conflict, retrying")
		return next, false
	})
}

// withConflictRetry runs fn up to attempts times while it fails with
// domain.ErrConcurrencyConflict. Any other error, including business denials, returns immediately.
func withConflictRetry(ctx context.Context, log *zerolog.Logger, op string, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	return retry.Do(ctx, conflictBackoff(log, op, attempts), func(ctx context.Context) error {
		err := fn()
		if err != nil && errors.Is(err, domain.ErrConcurrencyConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
