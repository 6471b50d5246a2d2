package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, BusRedis, cfg.Bus)
	require.Equal(t, []string{"localhost:9042"}, cfg.ScyllaHosts)
	require.Equal(t, "chat", cfg.ScyllaKeyspace)
	require.Equal(t, int64(1), cfg.SnowflakeNode)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BUS", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, BusKafka, cfg.Bus)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRejectsUnknownBus(t *testing.T) {
	t.Setenv("BUS", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
}
