// Package ingestsvc implements the admission gate: validate the submitted
// document, enqueue it for asynchronous persistence, and mirror it onto the
// live broadcast bus.
package ingestsvc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/apierr"
	"github.com/rmca/fip/internal/breaker"
	"github.com/rmca/fip/internal/bus"
	"github.com/rmca/fip/internal/queue"
)

// Options wires the gate's collaborators.
type Options struct {
	Queue queue.Queue
	// Bus receives a best-effort copy of every accepted document. Optional.
	Bus bus.Bus
	// Breaker guards the enqueue path. Required.
	Breaker *breaker.Breaker
	// MaxPayloadBytes rejects documents above this size; 0 disables the check.
	MaxPayloadBytes int
	Logger          zerolog.Logger
}

// Service validates and admits documents.
type Service struct {
	queue      queue.Queue
	bus        bus.Bus
	breaker    *breaker.Breaker
	maxPayload int
	log        zerolog.Logger
}

// New builds the gate.
func New(opts Options) (*Service, error) {
	if opts.Queue == nil {
		return nil, errors.New("ingest: Options.Queue is required")
	}
	if opts.Breaker == nil {
		return nil, errors.New("ingest: Options.Breaker is required")
	}
	return &Service{
		queue:      opts.Queue,
		bus:        opts.Bus,
		breaker:    opts.Breaker,
		maxPayload: opts.MaxPayloadBytes,
		log:        opts.Logger,
	}, nil
}

// Submit validates data and hands it to the work queue. Validation failures
// and transport failures come back as *apierr.Error.
//
// The broadcast mirror is strictly best effort: once the document is queued
// the submission has succeeded, whatever happens on the bus.
func (s *Service) Submit(ctx context.Context, data string) error {
	if s.maxPayload > 0 && len(data) > s.maxPayload {
		return apierr.PayloadTooLarge()
	}
	// Field presence is the caller's concern; an empty value is simply not
	// valid JSON.
	if !json.Valid([]byte(data)) {
		return apierr.InvalidJSON()
	}

	err := s.breaker.Do(func() error {
		return s.queue.Enqueue(ctx, []byte(data))
	})
	if err != nil {
		if !errors.Is(err, breaker.ErrOpen) {
			s.log.Error().Err(err).Msg("enqueue failed")
		}
		return apierr.Unavailable()
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, []byte(data)); err != nil {
			s.log.Warn().Err(err).Msg("live broadcast failed; submission already accepted")
		}
	}
	return nil
}
