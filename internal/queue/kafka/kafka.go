// Package kafka backs the work queue with a Kafka topic consumed through a
// consumer group. Auto-commit is disabled and offsets are committed only up
// to the contiguous acked prefix of each partition, so a nacked or in-flight
// record is never covered by a commit and survives a crash or rebalance.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/rmca/fip/internal/queue"
)

// Config configures the Kafka client.
type Config struct {
	Brokers []string
	Topic   string
	Group   string
}

// Queue is a Kafka-backed work queue.
type Queue struct {
	cfg    Config
	client *kgo.Client

	mu      sync.Mutex
	pending []*kgo.Record
	tracker *commitTracker
	closed  bool
}

// Open creates the client. The topic is consumed through the configured
// group with auto-commit disabled.
func Open(cfg Config) (*Queue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: Config.Brokers is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: Config.Topic is required")
	}
	if cfg.Group == "" {
		return nil, errors.New("kafka: Config.Group is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.Group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("new kafka client: %w", err)
	}
	return &Queue{cfg: cfg, client: client, tracker: newCommitTracker()}, nil
}

// Enqueue produces payload synchronously so admission errors surface to the
// caller instead of a background callback.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	rec := &kgo.Record{Topic: q.cfg.Topic, Value: payload}
	if err := q.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	return nil
}

// Dequeue returns the next record, polling the broker when the local buffer
// is drained. Ack commits the highest offset whose predecessors have all been
// acked; Nack puts the record back at the head of the local buffer for
// redelivery and, because the commit never passes it, it is also redelivered
// by the group after a crash or rebalance.
func (q *Queue) Dequeue(ctx context.Context) (*queue.Delivery, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, queue.ErrClosed
		}
		if len(q.pending) > 0 {
			rec := q.pending[0]
			q.pending = q.pending[1:]
			q.tracker.track(rec)
			q.mu.Unlock()
			return queue.NewDelivery(rec.Value,
				func(ctx context.Context) error { return q.ack(ctx, rec) },
				func(ctx context.Context) error { q.requeue(rec); return nil },
			), nil
		}
		q.mu.Unlock()

		fetches := q.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return nil, fmt.Errorf("%w: %v", queue.ErrUnavailable, errs[0].Err)
		}
		q.mu.Lock()
		fetches.EachRecord(func(rec *kgo.Record) {
			q.pending = append(q.pending, rec)
		})
		q.mu.Unlock()
	}
}

func (q *Queue) ack(ctx context.Context, rec *kgo.Record) error {
	q.mu.Lock()
	commit := q.tracker.ack(rec)
	q.mu.Unlock()
	if commit == nil {
		return nil
	}
	q.client.MarkCommitRecords(commit)
	return q.client.CommitMarkedOffsets(ctx)
}

func (q *Queue) requeue(rec *kgo.Record) {
	q.mu.Lock()
	if !q.closed {
		q.pending = append([]*kgo.Record{rec}, q.pending...)
	}
	q.mu.Unlock()
}

// Close shuts down the client without committing buffered records.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	q.client.Close()
	return nil
}

type topicPartition struct {
	topic     string
	partition int32
}

// commitTracker gates offset commits per partition. A record handed to a
// consumer is outstanding until acked; the committable position is the
// highest acked record below the lowest outstanding offset, so a commit can
// never cover a record whose processing has not succeeded.
type commitTracker struct {
	parts map[topicPartition]*partitionState
}

type partitionState struct {
	outstanding map[int64]struct{}
	acked       map[int64]*kgo.Record
}

func newCommitTracker() *commitTracker {
	return &commitTracker{parts: make(map[topicPartition]*partitionState)}
}

// track registers rec as handed out and not yet acked.
func (t *commitTracker) track(rec *kgo.Record) {
	tp := topicPartition{rec.Topic, rec.Partition}
	p := t.parts[tp]
	if p == nil {
		p = &partitionState{
			outstanding: make(map[int64]struct{}),
			acked:       make(map[int64]*kgo.Record),
		}
		t.parts[tp] = p
	}
	p.outstanding[rec.Offset] = struct{}{}
}

// ack marks rec processed and returns the record whose offset is now safe to
// commit, or nil while an earlier record on the partition is still owed.
func (t *commitTracker) ack(rec *kgo.Record) *kgo.Record {
	p := t.parts[topicPartition{rec.Topic, rec.Partition}]
	if p == nil {
		return rec
	}
	delete(p.outstanding, rec.Offset)
	p.acked[rec.Offset] = rec

	floor := int64(math.MaxInt64)
	for off := range p.outstanding {
		if off < floor {
			floor = off
		}
	}
	var commit *kgo.Record
	for off, r := range p.acked {
		if off < floor && (commit == nil || off > commit.Offset) {
			commit = r
		}
	}
	if commit != nil {
		for off := range p.acked {
			if off <= commit.Offset {
				delete(p.acked, off)
			}
		}
	}
	return commit
}
