package adapter

import (
	"context"

	"shopdesk-loyalty/internal/domain/model"
)

// EventPublisher hands committed domain events to the messaging subsystem.
type EventPublisher interface {
	Publish(ctx context.Context, e *model.OutboxEvent) error
}
