// Package queue defines the at-least-once work-queue transport between the
// admission gate and the task consumer.
//
// Acknowledgement is deferred until processing completes ("late ack"): a
// message stays owned by the transport until Ack, and a crash or Nack puts it
// back for redelivery. Backends: the embedded durable queue (pebbleq), AMQP
// (amqp), and Kafka (kafka).
package queue

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the transport could not accept or produce work.
var ErrUnavailable = errors.New("queue: transport unavailable")

// ErrClosed is returned once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Delivery is one consumed message awaiting acknowledgement.
type Delivery struct {
	Payload []byte

	ack  func(ctx context.Context) error
	nack func(ctx context.Context) error
}

// NewDelivery builds a Delivery; ack and nack may be nil for transports
// without an explicit counterpart (treated as no-ops).
func NewDelivery(payload []byte, ack, nack func(ctx context.Context) error) *Delivery {
	return &Delivery{Payload: payload, ack: ack, nack: nack}
}

// Ack marks the message as fully processed; it will not be redelivered.
func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Nack returns the message to the transport for redelivery.
func (d *Delivery) Nack(ctx context.Context) error {
	if d.nack == nil {
		return nil
	}
	return d.nack(ctx)
}

// Queue is the work-queue contract shared by all backends.
type Queue interface {
	// Enqueue submits one payload for asynchronous processing.
	Enqueue(ctx context.Context, payload []byte) error
	// Dequeue blocks until a message is available or ctx is done.
	Dequeue(ctx context.Context) (*Delivery, error)
	// Close releases transport resources.
	Close() error
}
