package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends lifecycle events to a Redis stream. Publishing is
// best-effort from the caller's point of view: the account service logs a
// failed publish and carries on, since the store write has already happened.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	eventJSON, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": eventJSON},
	}).Err()
	if err != nil {
		logger.Error().Err(err).Str("stream", stream).Str("type", eventType).Msg("failed to publish event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
