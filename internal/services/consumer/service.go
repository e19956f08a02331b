// Package consumersvc drains the work queue and persists documents. A record
// is acknowledged only after the store accepted it, so a crash mid-write
// means redelivery rather than loss. Redelivery of an already persisted
// document surfaces as a duplicate key, which is treated as success.
package consumersvc

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/queue"
	"github.com/rmca/fip/internal/store"
)

// Options wires the consumer's collaborators.
type Options struct {
	Queue  queue.Queue
	Store  store.Store
	Logger zerolog.Logger
}

// Service is one consumer worker. Run several concurrently for parallelism;
// they coordinate through the queue's delivery semantics.
type Service struct {
	queue queue.Queue
	store store.Store
	log   zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New builds a consumer.
func New(opts Options) (*Service, error) {
	if opts.Queue == nil {
		return nil, errors.New("consumer: Options.Queue is required")
	}
	if opts.Store == nil {
		return nil, errors.New("consumer: Options.Store is required")
	}
	return &Service{
		queue: opts.Queue,
		store: opts.Store,
		log:   opts.Logger,
		now:   time.Now,
		newID: func() string {
			id := uuid.New()
			return hex.EncodeToString(id[:])
		},
	}, nil
}

// Run processes deliveries until ctx is done or the queue closes.
func (s *Service) Run(ctx context.Context) error {
	for {
		d, err := s.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, queue.ErrClosed) {
				return nil
			}
			return err
		}
		if err := s.Process(ctx, d); err != nil {
			s.log.Error().Err(err).Msg("processing failed; delivery returned for retry")
		}
	}
}

// Process assigns the record identity and persists one delivery.
//
// Identity is assigned here, not at admission, so each processing attempt of
// a delivery gets a fresh key; duplicates can only come from the transport
// redelivering an already persisted message.
func (s *Service) Process(ctx context.Context, d *queue.Delivery) error {
	rec := store.Record{
		Timestamp: s.now().Unix(),
		MessageID: s.newID(),
		Data:      string(d.Payload),
	}

	err := s.store.Insert(ctx, rec)
	switch {
	case err == nil:
		s.log.Info().
			Int64("timestamp", rec.Timestamp).
			Str("message_id", rec.MessageID).
			Msg("record persisted")
	case errors.Is(err, store.ErrDuplicate):
		s.log.Warn().
			Int64("timestamp", rec.Timestamp).
			Str("message_id", rec.MessageID).
			Msg("duplicate record; acknowledging redelivery")
	default:
		if nerr := d.Nack(ctx); nerr != nil {
			s.log.Error().Err(nerr).Msg("nack failed")
		}
		return err
	}

	return d.Ack(ctx)
}
