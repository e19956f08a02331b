package bus

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 64

// MemBus is the in-process backend for single-node deployments.
type MemBus struct {
	buffer int

	mu     sync.Mutex
	nextID int
	subs   map[int]chan []byte
	closed bool
}

// NewMemBus returns an empty in-process bus whose subscriber channels hold
// up to buffer messages each; values <= 0 use the default. The buffer should
// be at least as large as the biggest downstream consumer queue so the bus
// itself never becomes the drop point.
func NewMemBus(buffer int) *MemBus {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &MemBus{buffer: buffer, subs: make(map[int]chan []byte)}
}

// Publish forwards payload to every subscriber. A subscriber whose buffer is
// full misses the message rather than slowing the publisher down.
func (b *MemBus) Publish(ctx context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe adds a subscriber with a buffered channel.
func (b *MemBus) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	ch := make(chan []byte, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

// Close releases every subscriber.
func (b *MemBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
