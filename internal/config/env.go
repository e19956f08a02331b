package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays FIP_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FIP_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("FIP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("FIP_MAX_PAYLOAD_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.MaxPayloadBytes = n
		}
	}
	if v := os.Getenv("FIP_BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Ingest.BreakerThreshold = n
		}
	}
	if v := os.Getenv("FIP_BREAKER_COOLDOWN_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Ingest.BreakerCooldownMs = n
		}
	}
	if v := os.Getenv("FIP_QUEUE_NAME"); v != "" {
		cfg.Queue.Name = v
	}
	if v := os.Getenv("FIP_AMQP_URL"); v != "" {
		cfg.Queue.AMQPURL = v
	}
	if v := os.Getenv("FIP_KAFKA_BROKERS"); v != "" {
		cfg.Queue.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("FIP_KAFKA_GROUP"); v != "" {
		cfg.Queue.KafkaGroup = v
	}
	if v := os.Getenv("FIP_QUEUE_LEASE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Queue.LeaseMs = n
		}
	}
	if v := os.Getenv("FIP_REDIS_ADDR"); v != "" {
		cfg.Bus.RedisAddr = v
	} else if host := os.Getenv("FIP_REDIS_HOST"); host != "" {
		// host/port form kept for parity with the original deployment
		port := os.Getenv("FIP_REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.Bus.RedisAddr = host + ":" + port
	}
	if v := os.Getenv("FIP_REDIS_TOPIC"); v != "" {
		cfg.Bus.Topic = v
	}
	if v := os.Getenv("FIP_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := os.Getenv("FIP_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("FIP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("FIP_SUBSCRIBER_QUEUE_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SubscriberQueueCap = n
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
