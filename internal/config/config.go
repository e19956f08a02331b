package config

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr string `json:"httpAddr"`
	DataDir  string `json:"dataDir"`

	// Ingest limits the admission gate enforces before anything touches
	// downstream systems.
	Ingest IngestConfig `json:"ingest"`

	// Queue selects and tunes the work-queue transport. Exactly one backend
	// is active: kafka when KafkaBrokers is set, amqp when AMQPURL is set,
	// otherwise the embedded durable queue.
	Queue QueueConfig `json:"queue"`

	// Bus selects the event-bus transport: redis when RedisAddr is set,
	// otherwise the in-process broadcast bus.
	Bus BusConfig `json:"bus"`

	// Store selects the record store: postgres when PostgresDSN is set,
	// otherwise the embedded Pebble table.
	Store StoreConfig `json:"store"`

	// PageSize is the fixed page size for record listing.
	PageSize int `json:"pageSize"`

	// Workers is the number of concurrent task-consumer workers.
	Workers int `json:"workers"`

	// SubscriberQueueCap bounds the per-connection fan-out queue.
	SubscriberQueueCap int `json:"subscriberQueueCap"`
}

// IngestConfig captures admission-gate tunables.
type IngestConfig struct {
	// MaxPayloadBytes rejects payloads larger than this with code 1002.
	// Zero disables the check.
	MaxPayloadBytes int `json:"maxPayloadBytes"`
	// BreakerThreshold is the number of consecutive enqueue failures that
	// opens the circuit.
	BreakerThreshold int `json:"breakerThreshold"`
	// BreakerCooldownMs is how long the circuit stays open before allowing
	// a single trial call.
	BreakerCooldownMs int64 `json:"breakerCooldownMs"`
}

// QueueConfig selects the work-queue backend.
type QueueConfig struct {
	Name         string   `json:"name"`
	AMQPURL      string   `json:"amqpUrl"`
	KafkaBrokers []string `json:"kafkaBrokers"`
	KafkaGroup   string   `json:"kafkaGroup"`
	// LeaseMs is how long the embedded queue holds an unacked message
	// before redelivering it.
	LeaseMs int64 `json:"leaseMs"`
}

// BusConfig selects the event-bus backend.
type BusConfig struct {
	RedisAddr string `json:"redisAddr"`
	Topic     string `json:"topic"`
}

// StoreConfig selects the record-store backend.
type StoreConfig struct {
	PostgresDSN string `json:"postgresDsn"`
}

// Default returns built-in defaults. They match the original deployment
// where one existed: page size 10, subscriber queue capacity 1000, payload
// cap 1000 bytes, topic "blah".
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Ingest: IngestConfig{
			MaxPayloadBytes:   1000,
			BreakerThreshold:  1,
			BreakerCooldownMs: 30_000,
		},
		Queue: QueueConfig{
			Name:       "documents",
			KafkaGroup: "fip-consumers",
			LeaseMs:    30_000,
		},
		Bus: BusConfig{
			Topic: "blah",
		},
		PageSize:           10,
		Workers:            1,
		SubscriberQueueCap: 1000,
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults. A .env file in the working directory is loaded first so that
// FromEnv sees its variables.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
