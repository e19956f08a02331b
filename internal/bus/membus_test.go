package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recvTimeout(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(time.Second):
		t.Fatal("no message within deadline")
		return nil
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewMemBus(0)
	ctx := context.Background()

	ch1, cancel1, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel1()
	ch2, cancel2, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel2()

	if err := b.Publish(ctx, []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := recvTimeout(t, ch1); string(got) != "hello" {
		t.Fatalf("sub1: %q", got)
	}
	if got := recvTimeout(t, ch2); string(got) != "hello" {
		t.Fatalf("sub2: %q", got)
	}
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	b := NewMemBus(0)
	ctx := context.Background()

	ch, cancel, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	if err := b.Publish(ctx, []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p, ok := <-ch; ok {
		t.Fatalf("cancelled subscriber received %q", p)
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	b := NewMemBus(0)
	ctx := context.Background()

	_, cancel, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	// Nobody drains; publishes beyond the buffer are dropped, not stuck.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultSubscriberBuffer*2; i++ {
			_ = b.Publish(ctx, []byte("m"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSizedBufferHoldsFullBurst(t *testing.T) {
	const burst = 200
	b := NewMemBus(burst)
	ctx := context.Background()

	ch, cancel, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	// The whole burst lands before the subscriber drains anything.
	for i := 0; i < burst; i++ {
		if err := b.Publish(ctx, []byte{byte(i)}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	for i := 0; i < burst; i++ {
		got := recvTimeout(t, ch)
		if got[0] != byte(i) {
			t.Fatalf("message %d: got %d", i, got[0])
		}
	}
}

func TestCloseReleasesSubscribers(t *testing.T) {
	b := NewMemBus(0)
	ch, _, err := b.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel still open after close")
	}
	if err := b.Publish(context.Background(), []byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
}
