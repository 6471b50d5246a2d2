package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BusMemory = "memory"
	BusRedis  = "redis"
	BusKafka  = "kafka"
)

type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// Bus selects the registry backend: memory (single node only),
	// redis or kafka.
	Bus          string   `envconfig:"BUS" default:"redis"`
	RedisAddr    string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-events"`

	ScyllaHosts    []string `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	ScyllaKeyspace string   `envconfig:"SCYLLA_KEYSPACE" default:"chat"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"dev_secret"`

	// Must be unique per gateway process sharing one store.
	SnowflakeNode int64 `envconfig:"SNOWFLAKE_NODE" default:"1"`
}

func Load() (Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	switch cfg.Bus {
	case BusMemory, BusRedis, BusKafka:
	default:
		return Config{}, fmt.Errorf("config: unknown bus %q", cfg.Bus)
	}

	return cfg, nil
}

func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
