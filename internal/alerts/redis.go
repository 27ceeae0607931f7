package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel alerts are published on.
const Channel = "alerts:distress"

// RedisBus publishes alerts on a Redis pub/sub channel so that every
// gateway replica sees alerts raised by any AI service instance.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisBus creates a RedisBus on the default channel. The client is
// owned by the caller.
func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: Channel,
		logger:  logger.With("component", "alerts.redis"),
	}
}

// Publish sends a to the channel.
func (b *RedisBus) Publish(ctx context.Context, a Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Subscribe listens on the channel until ctx is done. Messages that do not
// decode as an Alert are logged and skipped.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Alert, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Wait for the subscription confirmation so errors surface here.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	out := make(chan Alert, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var a Alert
				if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
					b.logger.Warn("dropping malformed alert", "error", err)
					continue
				}
				select {
				case out <- a:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the Redis client is closed by its owner.
func (b *RedisBus) Close() error {
	return nil
}
