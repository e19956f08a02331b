package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rmca/fip/internal/config"
	"github.com/rmca/fip/internal/logger"
	"github.com/rmca/fip/internal/runtime"
	httpserver "github.com/rmca/fip/internal/server/http"
)

// Options configures a server run.
type Options struct {
	Config    config.Config
	LogLevel  string
	LogFormat string
}

// Run starts the HTTP server, the fan-out hub, and the consumer workers, and
// blocks until ctx is cancelled or a component fails.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so direct callers
	// get signal handling too.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := opts.LogFormat
	if format == "" {
		format = "text"
	}
	log, err := logger.New(format, opts.LogLevel)
	if err != nil {
		return err
	}

	cfg := opts.Config
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(config.DefaultDataDir(), "store")
	}

	rt, err := runtime.Open(sctx, runtime.Options{Config: cfg, Logger: log})
	if err != nil {
		return err
	}
	defer rt.Close()

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	log.Info().
		Str("http", cfg.HTTPAddr).
		Str("data_dir", cfg.DataDir).
		Int("workers", workers).
		Msg("starting fip server")

	srv := httpserver.New(rt)
	defer srv.Close()

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.HTTPAddr)
	})
	g.Go(func() error {
		return rt.Fanout().Run(gctx)
	})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return rt.Consumer().Run(gctx)
		})
	}

	err = g.Wait()
	if sctx.Err() != nil {
		return nil
	}
	return err
}
