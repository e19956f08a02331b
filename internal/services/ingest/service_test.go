package ingestsvc

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/apierr"
	"github.com/rmca/fip/internal/breaker"
	"github.com/rmca/fip/internal/queue"
)

type fakeQueue struct {
	payloads [][]byte
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, payload []byte) error {
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*queue.Delivery, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQueue) Close() error { return nil }

type fakeBus struct {
	published [][]byte
	err       error
}

func (b *fakeBus) Publish(ctx context.Context, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, payload)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	return nil, nil, errors.New("not implemented")
}

func (b *fakeBus) Close() error { return nil }

func newService(t *testing.T, q *fakeQueue, b *fakeBus) *Service {
	t.Helper()
	s, err := New(Options{
		Queue:           q,
		Bus:             b,
		Breaker:         breaker.New("queue", 1, 30*time.Second),
		MaxPayloadBytes: 1000,
		Logger:          zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func apiCode(t *testing.T, err error) (int, int) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("want *apierr.Error, got %v", err)
	}
	return ae.Code, ae.Status
}

func TestSubmitAccepted(t *testing.T) {
	q := &fakeQueue{}
	b := &fakeBus{}
	s := newService(t, q, b)

	if err := s.Submit(context.Background(), `{"k":"v"}`); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(q.payloads) != 1 || string(q.payloads[0]) != `{"k":"v"}` {
		t.Fatalf("queue payloads: %v", q.payloads)
	}
	if len(b.published) != 1 || string(b.published[0]) != `{"k":"v"}` {
		t.Fatalf("bus publishes: %v", b.published)
	}
}

func TestSubmitEmptyDataIsInvalidJSON(t *testing.T) {
	s := newService(t, &fakeQueue{}, &fakeBus{})
	code, status := apiCode(t, s.Submit(context.Background(), ""))
	if code != apierr.CodeInvalidJSON || status != http.StatusBadRequest {
		t.Fatalf("code=%d status=%d", code, status)
	}
}

func TestSubmitInvalidJSON(t *testing.T) {
	q := &fakeQueue{}
	s := newService(t, q, &fakeBus{})
	code, _ := apiCode(t, s.Submit(context.Background(), "not json"))
	if code != apierr.CodeInvalidJSON {
		t.Fatalf("code=%d", code)
	}
	if len(q.payloads) != 0 {
		t.Fatal("invalid payload reached the queue")
	}
}

func TestSubmitPayloadTooLarge(t *testing.T) {
	s := newService(t, &fakeQueue{}, &fakeBus{})
	big := `{"k":"` + string(make([]byte, 2000)) + `"}`
	code, status := apiCode(t, s.Submit(context.Background(), big))
	if code != apierr.CodeMaxDataSize || status != http.StatusRequestEntityTooLarge {
		t.Fatalf("code=%d status=%d", code, status)
	}
}

func TestSubmitQueueFailureOpensBreaker(t *testing.T) {
	q := &fakeQueue{err: errors.New("broker down")}
	s := newService(t, q, &fakeBus{})

	code, status := apiCode(t, s.Submit(context.Background(), `{}`))
	if code != apierr.CodeServiceUnavailable || status != http.StatusServiceUnavailable {
		t.Fatalf("code=%d status=%d", code, status)
	}

	// Breaker is open now; the queue must not be touched again.
	q.err = nil
	code, _ = apiCode(t, s.Submit(context.Background(), `{}`))
	if code != apierr.CodeServiceUnavailable {
		t.Fatalf("code=%d", code)
	}
	if len(q.payloads) != 0 {
		t.Fatal("enqueue attempted while breaker open")
	}
}

func TestSubmitBusFailureIsSwallowed(t *testing.T) {
	q := &fakeQueue{}
	b := &fakeBus{err: errors.New("redis down")}
	s := newService(t, q, b)

	if err := s.Submit(context.Background(), `{"k":1}`); err != nil {
		t.Fatalf("bus failure must not fail the submission: %v", err)
	}
	if len(q.payloads) != 1 {
		t.Fatal("payload not queued")
	}
}

func TestSubmitWithoutBus(t *testing.T) {
	q := &fakeQueue{}
	s, err := New(Options{
		Queue:   q,
		Breaker: breaker.New("queue", 1, time.Second),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Submit(context.Background(), `{}`); err != nil {
		t.Fatalf("submit: %v", err)
	}
}
