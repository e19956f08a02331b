// Package fanoutsvc relays documents from the broadcast bus to live stream
// subscribers. Each subscriber owns a bounded queue; a subscriber that falls
// behind loses messages instead of stalling everyone else.
package fanoutsvc

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/bus"
)

// Options wires the hub.
type Options struct {
	Bus bus.Bus
	// QueueCap bounds each subscriber's queue.
	QueueCap int
	Logger   zerolog.Logger
}

type subscriber struct {
	ch     chan []byte
	filter celFilter
}

// Hub fans incoming documents out to registered subscribers.
type Hub struct {
	bus      bus.Bus
	queueCap int
	log      zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// NewHub builds the hub.
func NewHub(opts Options) (*Hub, error) {
	if opts.Bus == nil {
		return nil, errors.New("fanout: Options.Bus is required")
	}
	if opts.QueueCap <= 0 {
		opts.QueueCap = 1000
	}
	return &Hub{
		bus:      opts.Bus,
		queueCap: opts.QueueCap,
		log:      opts.Logger,
		subs:     make(map[int]*subscriber),
	}, nil
}

// Run consumes the bus and broadcasts until ctx is done or the bus closes.
func (h *Hub) Run(ctx context.Context) error {
	msgs, cancel, err := h.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.Broadcast(msg)
		}
	}
}

// Subscribe registers a subscriber with an optional CEL filter expression.
// The returned cancel function releases the subscriber and closes its
// channel.
func (h *Hub) Subscribe(filterExpr string) (<-chan []byte, func(), error) {
	filter, err := newCELFilter(filterExpr)
	if err != nil {
		return nil, nil, err
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{ch: make(chan []byte, h.queueCap), filter: filter}
	h.subs[id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel, nil
}

// Broadcast offers payload to every subscriber whose filter matches. The
// send never blocks: a full queue drops the message for that subscriber
// only.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if !sub.filter.Eval(payload) {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			h.log.Warn().Int("subscriber", id).Msg("subscriber queue full; message dropped")
		}
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
