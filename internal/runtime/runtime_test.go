package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/config"
)

func openRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	rt, err := Open(context.Background(), Options{Config: cfg, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestOpenWiresEmbeddedBackends(t *testing.T) {
	rt := openRuntime(t)
	if rt.Ingest() == nil || rt.Consumer() == nil || rt.Records() == nil || rt.Fanout() == nil {
		t.Fatal("services not wired")
	}
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if open := rt.Breakers().Open(); len(open) != 0 {
		t.Fatalf("breakers open at startup: %v", open)
	}
}

func TestSubmitFlowsThroughToRecords(t *testing.T) {
	rt := openRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = rt.Consumer().Run(ctx)
		close(done)
	}()

	for _, doc := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		if err := rt.Ingest().Submit(ctx, doc); err != nil {
			t.Fatalf("submit %s: %v", doc, err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		page, err := rt.Records().Page(ctx, "")
		if err != nil {
			t.Fatalf("page: %v", err)
		}
		if page.Count == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d of 3 records persisted", page.Count)
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
