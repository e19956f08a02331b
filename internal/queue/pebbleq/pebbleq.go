// Package pebbleq is the embedded work-queue backend. Messages, the
// availability index, and in-flight leases all live in the shared Pebble
// database, so a single-node deployment needs no external broker while
// keeping at-least-once redelivery.
package pebbleq

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/queue"
	pebblestore "github.com/rmca/fip/internal/storage/pebble"
)

const reclaimPoll = 250 * time.Millisecond

// Options configures an embedded queue.
type Options struct {
	// Name scopes all keys; two queues with distinct names share a DB safely.
	Name string
	// Lease is how long a dequeued message stays invisible before it is
	// considered abandoned and returned to the available set.
	Lease time.Duration
	// Logger receives redelivery diagnostics. Optional.
	Logger zerolog.Logger
}

// Queue is a durable FIFO with leased, late-ack consumption.
type Queue struct {
	db   *pebblestore.DB
	name string

	lease time.Duration
	log   zerolog.Logger
	now   func() time.Time

	mu      sync.Mutex
	lastSeq uint64
	closed  bool
	// notify is closed and replaced on every enqueue so blocked Dequeue
	// callers wake up. Same shape as a log append broadcast.
	notify chan struct{}
}

// Open binds a queue onto db, recovering the last assigned sequence.
func Open(db *pebblestore.DB, opts Options) (*Queue, error) {
	if opts.Name == "" {
		return nil, errors.New("pebbleq: Options.Name is required")
	}
	if opts.Lease <= 0 {
		opts.Lease = 30 * time.Second
	}
	q := &Queue{
		db:     db,
		name:   opts.Name,
		lease:  opts.Lease,
		log:    opts.Logger,
		now:    time.Now,
		notify: make(chan struct{}),
	}
	raw, err := db.Get(metaKey(opts.Name))
	switch {
	case err == nil && len(raw) == 8:
		q.lastSeq = binary.BigEndian.Uint64(raw)
	case errors.Is(err, pebblestore.ErrNotFound):
	case err != nil:
		return nil, err
	}
	return q, nil
}

// Enqueue appends payload and marks it available in one atomic batch.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return queue.ErrClosed
	}

	seq := q.lastSeq + 1
	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Set(msgKey(q.name, seq), payload, nil); err != nil {
		return err
	}
	if err := b.Set(availKey(q.name, seq), nil, nil); err != nil {
		return err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(metaKey(q.name), meta[:], nil); err != nil {
		return err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return err
	}
	q.lastSeq = seq

	close(q.notify)
	q.notify = make(chan struct{})
	return nil
}

// Dequeue claims the oldest available message under a lease. It blocks until
// a message can be claimed or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*queue.Delivery, error) {
	for {
		d, wait, err := q.tryClaim()
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}

		// Wake on enqueue, or poll so expired leases get reclaimed even
		// when the queue is otherwise quiet.
		timer := time.NewTimer(reclaimPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wait:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// tryClaim reclaims expired leases, then claims the first available message.
// It returns the current notify channel so the caller can block without
// holding the lock.
func (q *Queue) tryClaim() (*queue.Delivery, <-chan struct{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, nil, queue.ErrClosed
	}

	if err := q.reclaimExpiredLocked(); err != nil {
		return nil, nil, err
	}

	prefix := availPrefix(q.name)
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, nil, err
	}
	if !it.First() {
		err := it.Close()
		return nil, q.notify, err
	}
	seq := seqFromKey(it.Key(), prefix)
	if err := it.Close(); err != nil {
		return nil, nil, err
	}

	payload, err := q.db.Get(msgKey(q.name, seq))
	if err != nil {
		return nil, nil, err
	}

	var expiry [8]byte
	binary.BigEndian.PutUint64(expiry[:], uint64(q.now().Add(q.lease).UnixMilli()))
	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Delete(availKey(q.name, seq), nil); err != nil {
		return nil, nil, err
	}
	if err := b.Set(leaseKey(q.name, seq), expiry[:], nil); err != nil {
		return nil, nil, err
	}
	if err := q.db.CommitBatch(context.Background(), b); err != nil {
		return nil, nil, err
	}

	d := queue.NewDelivery(payload,
		func(ctx context.Context) error { return q.ack(ctx, seq) },
		func(ctx context.Context) error { return q.nack(ctx, seq) },
	)
	return d, nil, nil
}

// reclaimExpiredLocked moves messages whose lease has lapsed back to the
// available set. Callers hold q.mu.
func (q *Queue) reclaimExpiredLocked() error {
	prefix := leasePrefix(q.name)
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return err
	}
	nowMs := uint64(q.now().UnixMilli())
	var expired []uint64
	for ok := it.First(); ok; ok = it.Next() {
		if len(it.Value()) == 8 && binary.BigEndian.Uint64(it.Value()) <= nowMs {
			expired = append(expired, seqFromKey(it.Key(), prefix))
		}
	}
	if err := it.Close(); err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	b := q.db.NewBatch()
	defer b.Close()
	for _, seq := range expired {
		if err := b.Delete(leaseKey(q.name, seq), nil); err != nil {
			return err
		}
		if err := b.Set(availKey(q.name, seq), nil, nil); err != nil {
			return err
		}
	}
	if err := q.db.CommitBatch(context.Background(), b); err != nil {
		return err
	}
	q.log.Warn().Str("queue", q.name).Int("count", len(expired)).
		Msg("reclaimed expired leases for redelivery")
	return nil
}

func (q *Queue) ack(ctx context.Context, seq uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Delete(leaseKey(q.name, seq), nil); err != nil {
		return err
	}
	if err := b.Delete(msgKey(q.name, seq), nil); err != nil {
		return err
	}
	return q.db.CommitBatch(ctx, b)
}

func (q *Queue) nack(ctx context.Context, seq uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Delete(leaseKey(q.name, seq), nil); err != nil {
		return err
	}
	if err := b.Set(availKey(q.name, seq), nil, nil); err != nil {
		return err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return err
	}
	close(q.notify)
	q.notify = make(chan struct{})
	return nil
}

// Close marks the queue closed and wakes blocked consumers. The underlying
// DB is owned by the caller.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.notify)
	q.notify = make(chan struct{})
	return nil
}
