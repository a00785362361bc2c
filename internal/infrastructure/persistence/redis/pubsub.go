package redis

import (
	"context"

	"github.com/suilotion/peerhelp-hub/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUB/SUB ADAPTER
// Bridges the go-redis client to the event bus's RedisClient interface so the
// distributed bus stays decoupled from the concrete driver.
// ══════════════════════════════════════════════════════════════════════════════

// PubSub adapts a Cache's Redis client to messaging.RedisClient.
type PubSub struct {
	cache *Cache
}

// NewPubSub creates a new PubSub adapter.
func NewPubSub(cache *Cache) *PubSub {
	return &PubSub{cache: cache}
}

// Publish sends a message to a channel.
func (p *PubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.cache.Client().Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to channels and streams messages until ctx is done.
func (p *PubSub) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := p.cache.Client().Subscribe(ctx, channels...)

	// Wait for the subscription to be confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the underlying Redis connection.
func (p *PubSub) Close() error {
	return p.cache.Close()
}
