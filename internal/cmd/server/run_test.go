package serverrun

import (
	"context"
	"testing"
	"time"

	"github.com/rmca/fip/internal/config"
)

func TestRunStartsAndStops(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.HTTPAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- Run(ctx, Options{Config: cfg, LogLevel: "error", LogFormat: "json"})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	if err := Run(context.Background(), Options{Config: cfg, LogLevel: "verbose"}); err == nil {
		t.Fatal("bad log level accepted")
	}
}
