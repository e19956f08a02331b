package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus broadcasts through a Redis pub/sub channel so multiple nodes see
// each other's publishes.
type RedisBus struct {
	client  *redis.Client
	channel string

	mu     sync.Mutex
	closed bool
}

// NewRedisBus connects to addr and verifies the connection.
func NewRedisBus(ctx context.Context, addr, channel string) (*RedisBus, error) {
	if addr == "" {
		return nil, errors.New("bus: redis address is required")
	}
	if channel == "" {
		return nil, errors.New("bus: redis channel is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBus{client: client, channel: channel}, nil
}

// Publish sends payload on the channel. Redis pub/sub has no retention, so
// subscribers connected later never see it.
func (b *RedisBus) Publish(ctx context.Context, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection and adapts its message
// stream to raw payloads. The pump goroutine exits when the subscription is
// cancelled or ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, nil, ErrClosed
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan []byte, defaultSubscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

// Close shuts down the client. Open subscriptions end when their pub/sub
// connections drop.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}
