// Package amqp backs the work queue with a RabbitMQ broker. The queue is
// declared durable and consumed with manual acknowledgement so unprocessed
// messages survive both broker and consumer restarts.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/rmca/fip/internal/queue"
)

// Config configures the broker connection.
type Config struct {
	URL         string
	Queue       string
	ConsumerTag string
	// Prefetch bounds unacked deliveries per consumer channel.
	Prefetch int
}

// Queue is an AMQP-backed work queue.
type Queue struct {
	cfg  Config
	conn *amqp091.Connection
	ch   *amqp091.Channel

	mu        sync.Mutex
	deliver   <-chan amqp091.Delivery
	consuming bool
	closed    bool
}

// Open dials the broker and declares the durable queue.
func Open(cfg Config) (*Queue, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp: Config.URL is required")
	}
	if cfg.Queue == "" {
		return nil, errors.New("amqp: Config.Queue is required")
	}
	if cfg.ConsumerTag == "" {
		cfg.ConsumerTag = "fip-consumer"
	}
	if cfg.Prefetch < 1 {
		cfg.Prefetch = 1
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &Queue{cfg: cfg, conn: conn, ch: ch}, nil
}

// Enqueue publishes payload as a persistent message on the default exchange.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	err := q.ch.PublishWithContext(ctx, "", q.cfg.Queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	return nil
}

// Dequeue receives the next delivery, starting the consumer on first use.
// Acknowledgement is manual; the broker redelivers on Nack or channel loss.
func (q *Queue) Dequeue(ctx context.Context) (*queue.Delivery, error) {
	deliver, err := q.deliveries()
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-deliver:
		if !ok {
			return nil, queue.ErrUnavailable
		}
		return queue.NewDelivery(d.Body,
			func(context.Context) error { return d.Ack(false) },
			func(context.Context) error { return d.Nack(false, true) },
		), nil
	}
}

func (q *Queue) deliveries() (<-chan amqp091.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, queue.ErrClosed
	}
	if !q.consuming {
		deliver, err := q.ch.Consume(q.cfg.Queue, q.cfg.ConsumerTag, false, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("consume queue: %w", err)
		}
		q.deliver = deliver
		q.consuming = true
	}
	return q.deliver, nil
}

// Close cancels the consumer and closes the channel and connection.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	consuming := q.consuming
	q.mu.Unlock()

	var errs []error
	if consuming {
		if err := q.ch.Cancel(q.cfg.ConsumerTag, false); err != nil {
			errs = append(errs, err)
		}
	}
	if err := q.ch.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := q.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
