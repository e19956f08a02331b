package kafka

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

func TestOpenValidatesConfig(t *testing.T) {
	if _, err := Open(Config{Topic: "t", Group: "g"}); err == nil {
		t.Fatal("missing brokers accepted")
	}
	if _, err := Open(Config{Brokers: []string{"localhost:9092"}, Group: "g"}); err == nil {
		t.Fatal("missing topic accepted")
	}
	if _, err := Open(Config{Brokers: []string{"localhost:9092"}, Topic: "t"}); err == nil {
		t.Fatal("missing group accepted")
	}
}

func rec(off int64) *kgo.Record {
	return &kgo.Record{Topic: "t", Partition: 0, Offset: off}
}

func TestAckCommitsOnlyContiguousPrefix(t *testing.T) {
	tr := newCommitTracker()
	r0, r1, r2 := rec(0), rec(1), rec(2)
	tr.track(r0)
	tr.track(r1)
	tr.track(r2)

	// Offset 1 done first: offset 0 is still owed, nothing may be committed.
	if c := tr.ack(r1); c != nil {
		t.Fatalf("committed offset %d past an unacked record", c.Offset)
	}
	// Offset 0 done: the prefix now reaches offset 1.
	if c := tr.ack(r0); c == nil || c.Offset != 1 {
		t.Fatalf("commit after prefix completed: %+v", c)
	}
	if c := tr.ack(r2); c == nil || c.Offset != 2 {
		t.Fatalf("commit for final record: %+v", c)
	}
}

func TestFailedRecordHoldsBackCommits(t *testing.T) {
	tr := newCommitTracker()
	r0, r1 := rec(0), rec(1)
	tr.track(r0)
	tr.track(r1)

	// Offset 0 fails and stays outstanding; acking offset 1 must not let a
	// commit cover it.
	if c := tr.ack(r1); c != nil {
		t.Fatalf("committed offset %d over a failed record", c.Offset)
	}
	// Redelivery succeeds, the whole prefix becomes committable.
	tr.track(r0)
	if c := tr.ack(r0); c == nil || c.Offset != 1 {
		t.Fatalf("commit after redelivered record acked: %+v", c)
	}
}

func TestTrackerKeepsPartitionsIndependent(t *testing.T) {
	tr := newCommitTracker()
	a := &kgo.Record{Topic: "t", Partition: 0, Offset: 0}
	b := &kgo.Record{Topic: "t", Partition: 1, Offset: 0}
	tr.track(a)
	tr.track(b)
	if c := tr.ack(b); c == nil || c.Partition != 1 {
		t.Fatalf("partition 1 blocked by partition 0: %+v", c)
	}
}

func TestNackRequeuesLocally(t *testing.T) {
	q := &Queue{
		cfg:     Config{Topic: "t"},
		tracker: newCommitTracker(),
		pending: []*kgo.Record{{Topic: "t", Partition: 0, Offset: 0, Value: []byte(`{"n":1}`)}},
	}
	ctx := context.Background()
	d, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := d.Nack(ctx); err != nil {
		t.Fatalf("nack: %v", err)
	}
	again, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue after nack: %v", err)
	}
	if string(again.Payload) != `{"n":1}` {
		t.Fatalf("redelivered payload: %q", again.Payload)
	}
}

// Integration test; requires a reachable cluster. Skipped unless
// FIP_TEST_KAFKA_BROKERS is set (comma-separated).
func TestRoundTrip(t *testing.T) {
	brokers := os.Getenv("FIP_TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("FIP_TEST_KAFKA_BROKERS not set")
	}
	topic := fmt.Sprintf("fip-test-%d", time.Now().UnixNano())
	q, err := Open(Config{
		Brokers: strings.Split(brokers, ","),
		Topic:   topic,
		Group:   topic + "-group",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := q.Enqueue(ctx, []byte(`{"n":1}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if string(d.Payload) != `{"n":1}` {
		t.Fatalf("payload: %q", d.Payload)
	}
	if err := d.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
}
