package repository

import (
	"context"
	"time"

	"shopdesk-loyalty/internal/domain/model"
)

// -----------------------------
// Event outbox
// -----------------------------
type OutboxRepository interface {
	Append(ctx context.Context, tx Tx, e *model.OutboxEvent) error
	// FetchUnpublished claims up to limit rows, skipping rows locked by other relays.
	FetchUnpublished(ctx context.Context, tx Tx, limit int) ([]*model.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx Tx, ids []string, at time.Time) error
}
