// Package bus is the best-effort broadcast channel between the admission
// gate and live subscribers. Delivery is fire-and-forget: a publish reaches
// whoever is subscribed at that moment and is never retried or persisted.
package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned once the bus has been shut down.
var ErrClosed = errors.New("bus: closed")

// Bus is the broadcast contract shared by the in-process and Redis backends.
type Bus interface {
	// Publish sends payload to all current subscribers.
	Publish(ctx context.Context, payload []byte) error
	// Subscribe registers a new subscriber. The returned cancel function
	// must be called to release it; the channel is closed afterwards.
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
	// Close shuts the bus down and releases all subscribers.
	Close() error
}
