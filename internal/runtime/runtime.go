package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/breaker"
	"github.com/rmca/fip/internal/bus"
	"github.com/rmca/fip/internal/config"
	"github.com/rmca/fip/internal/queue"
	amqpq "github.com/rmca/fip/internal/queue/amqp"
	kafkaq "github.com/rmca/fip/internal/queue/kafka"
	"github.com/rmca/fip/internal/queue/pebbleq"
	consumersvc "github.com/rmca/fip/internal/services/consumer"
	fanoutsvc "github.com/rmca/fip/internal/services/fanout"
	ingestsvc "github.com/rmca/fip/internal/services/ingest"
	recordsvc "github.com/rmca/fip/internal/services/records"
	pebblestore "github.com/rmca/fip/internal/storage/pebble"
	"github.com/rmca/fip/internal/store"
)

// Options for building the Runtime.
type Options struct {
	Config config.Config
	Logger zerolog.Logger
}

// Runtime wires storage, transports, and services for a single node.
//
// Backends are chosen from configuration: Postgres when a DSN is set and the
// embedded Pebble store otherwise; Kafka or AMQP when brokers are configured
// and the embedded queue otherwise; Redis pub/sub when an address is set and
// the in-process bus otherwise.
type Runtime struct {
	cfg config.Config
	log zerolog.Logger

	db    *pebblestore.DB
	store store.Store
	queue queue.Queue
	bus   bus.Bus

	monitor *breaker.Monitor

	ingest   *ingestsvc.Service
	consumer *consumersvc.Service
	records  *recordsvc.Service
	fanout   *fanoutsvc.Hub
}

// Open builds all components. On error, everything opened so far is closed.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	rt := &Runtime{cfg: opts.Config, log: opts.Logger, monitor: breaker.NewMonitor()}
	if err := rt.open(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) open(ctx context.Context) error {
	cfg := r.cfg

	if r.needsPebble() {
		db, err := pebblestore.Open(pebblestore.Options{DataDir: cfg.DataDir, Fsync: pebblestore.FsyncModeAlways})
		if err != nil {
			return err
		}
		r.db = db
	}

	if cfg.Store.PostgresDSN != "" {
		st, err := store.NewPostgresStore(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return err
		}
		r.store = st
		r.log.Info().Msg("using postgres record store")
	} else {
		r.store = store.NewPebbleStore(r.db)
		r.log.Info().Str("data_dir", cfg.DataDir).Msg("using embedded record store")
	}

	switch {
	case len(cfg.Queue.KafkaBrokers) > 0:
		q, err := kafkaq.Open(kafkaq.Config{
			Brokers: cfg.Queue.KafkaBrokers,
			Topic:   cfg.Queue.Name,
			Group:   cfg.Queue.KafkaGroup,
		})
		if err != nil {
			return err
		}
		r.queue = q
		r.log.Info().Strs("brokers", cfg.Queue.KafkaBrokers).Msg("using kafka work queue")
	case cfg.Queue.AMQPURL != "":
		q, err := amqpq.Open(amqpq.Config{URL: cfg.Queue.AMQPURL, Queue: cfg.Queue.Name})
		if err != nil {
			return err
		}
		r.queue = q
		r.log.Info().Msg("using amqp work queue")
	default:
		q, err := pebbleq.Open(r.db, pebbleq.Options{
			Name:   cfg.Queue.Name,
			Lease:  time.Duration(cfg.Queue.LeaseMs) * time.Millisecond,
			Logger: r.log,
		})
		if err != nil {
			return err
		}
		r.queue = q
		r.log.Info().Str("queue", cfg.Queue.Name).Msg("using embedded work queue")
	}

	if cfg.Bus.RedisAddr != "" {
		b, err := bus.NewRedisBus(ctx, cfg.Bus.RedisAddr, cfg.Bus.Topic)
		if err != nil {
			return err
		}
		r.bus = b
		r.log.Info().Str("addr", cfg.Bus.RedisAddr).Msg("using redis broadcast bus")
	} else {
		// Buffer at least one fan-out queue's worth so a burst that fits the
		// per-connection queues is not dropped upstream of them.
		r.bus = bus.NewMemBus(cfg.SubscriberQueueCap)
	}

	queueBreaker := r.monitor.Register(breaker.New(
		"work-queue",
		cfg.Ingest.BreakerThreshold,
		time.Duration(cfg.Ingest.BreakerCooldownMs)*time.Millisecond,
	))

	ingest, err := ingestsvc.New(ingestsvc.Options{
		Queue:           r.queue,
		Bus:             r.bus,
		Breaker:         queueBreaker,
		MaxPayloadBytes: cfg.Ingest.MaxPayloadBytes,
		Logger:          r.log,
	})
	if err != nil {
		return err
	}
	r.ingest = ingest

	consumer, err := consumersvc.New(consumersvc.Options{
		Queue:  r.queue,
		Store:  r.store,
		Logger: r.log,
	})
	if err != nil {
		return err
	}
	r.consumer = consumer

	records, err := recordsvc.New(r.store, cfg.PageSize)
	if err != nil {
		return err
	}
	r.records = records

	fanout, err := fanoutsvc.NewHub(fanoutsvc.Options{
		Bus:      r.bus,
		QueueCap: cfg.SubscriberQueueCap,
		Logger:   r.log,
	})
	if err != nil {
		return err
	}
	r.fanout = fanout
	return nil
}

// needsPebble reports whether any configured backend is embedded.
func (r *Runtime) needsPebble() bool {
	embeddedQueue := len(r.cfg.Queue.KafkaBrokers) == 0 && r.cfg.Queue.AMQPURL == ""
	embeddedStore := r.cfg.Store.PostgresDSN == ""
	return embeddedQueue || embeddedStore
}

// Close releases all components in reverse dependency order.
func (r *Runtime) Close() error {
	var errs []error
	if r.bus != nil {
		errs = append(errs, r.bus.Close())
	}
	if r.queue != nil {
		errs = append(errs, r.queue.Close())
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	return errors.Join(errs...)
}

// CheckHealth verifies the record store and any embedded storage are
// reachable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db != nil {
		it, err := r.db.NewIter(nil)
		if err != nil {
			return err
		}
		if err := it.Close(); err != nil {
			return err
		}
	}
	return r.store.Ping(ctx)
}

// Ingest returns the admission gate.
func (r *Runtime) Ingest() *ingestsvc.Service { return r.ingest }

// Consumer returns the queue consumer.
func (r *Runtime) Consumer() *consumersvc.Service { return r.consumer }

// Records returns the pagination service.
func (r *Runtime) Records() *recordsvc.Service { return r.records }

// Fanout returns the live stream hub.
func (r *Runtime) Fanout() *fanoutsvc.Hub { return r.fanout }

// Breakers returns the circuit monitor for health reporting.
func (r *Runtime) Breakers() *breaker.Monitor { return r.monitor }

// Config returns the runtime configuration.
func (r *Runtime) Config() config.Config { return r.cfg }
