package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/adapter"
	"shopdesk-loyalty/internal/domain/ports/repository"
	"shopdesk-loyalty/internal/infra/metrics"
)

// OutboxRelay periodically publishes committed loyalty events and marks them published.
// A crash between publish and commit re-sends the batch, so delivery is at-least-once.
type OutboxRelay struct {
	interval  time.Duration
	batchSize int
	outbox    repository.OutboxRepository
	tm        repository.TransactionManager
	publisher adapter.EventPublisher
	now       func() time.Time
	log       *zerolog.Logger
}

func NewOutboxRelay(interval time.Duration, batchSize int, outbox repository.OutboxRepository, tm repository.TransactionManager, publisher adapter.EventPublisher, logger *zerolog.Logger) *OutboxRelay {
	compLog := logger.With().Str("component", "OutboxRelay").Logger()
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		interval:  interval,
		batchSize: batchSize,
		outbox:    outbox,
		tm:        tm,
		publisher: publisher,
		now:       time.Now,
		log:       &compLog,
	}
}

func (w *OutboxRelay) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting outbox relay")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping outbox relay")
			return ctx.Err()
		case <-ticker.C:
			// Drain the backlog before waiting for the next tick.
			for {
				n, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Error().Err(err).Msg("outbox relay error")
					break
				}
				if n > 0 {
					w.log.Debug().Int("count", n).Msg("outbox events published")
				}
				if n < w.batchSize {
					break
				}
			}
		}
	}
}

// RunOnce publishes one batch in order and returns how many were marked published.
// Publishing stops at the first failure so later events are not sent ahead of it.
func (w *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	var published int
	err := w.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		batch, err := w.outbox.FetchUnpublished(ctx, tx, w.batchSize)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(batch))
		var pubErr error
		for _, e := range batch {
			if pubErr = w.publish(ctx, e); pubErr != nil {
				break
			}
			ids = append(ids, e.ID)
		}
		if err := w.outbox.MarkPublished(ctx, tx, ids, w.now()); err != nil {
			return err
		}
		published = len(ids)
		if pubErr != nil {
			w.log.Warn().Err(pubErr).Int("published", len(ids)).Int("batch", len(batch)).Msg("publish interrupted, remaining events stay queued")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

func (w *OutboxRelay) publish(ctx context.Context, e *model.OutboxEvent) error {
	if err := w.publisher.Publish(ctx, e); err != nil {
		metrics.IncEventPublished(e.Kind, "failed")
		return err
	}
	metrics.IncEventPublished(e.Kind, "published")
	return nil
}
