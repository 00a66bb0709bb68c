package redis

import (
	"context"
	"encoding/json"
	"time"

	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*EventPublisher)(nil)

// envelope is the wire shape on the pub/sub channel.
type envelope struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func encodeEvent(e *model.OutboxEvent) ([]byte, error) {
	return json.Marshal(envelope{
		ID:        e.ID,
		Kind:      e.Kind,
		Key:       e.Key,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	})
}

// EventPublisher publishes outbox events on a Redis pub/sub channel.
// Subscribers must tolerate duplicates: the relay delivers at least once.
type EventPublisher struct {
	cli     *Client
	channel string
}

func NewEventPublisher(c *Client, channel string) *EventPublisher {
	return &EventPublisher{cli: c, channel: channel}
}

func (p *EventPublisher) Publish(ctx context.Context, e *model.OutboxEvent) error {
	b, err := encodeEvent(e)
	if err != nil {
		return err
	}
	return p.cli.cli.Publish(ctx, p.channel, b).Err()
}
