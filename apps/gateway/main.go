package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/baithak/pkg/auth"
	"github.com/mahaj/baithak/pkg/config"
	"github.com/mahaj/baithak/pkg/presence"
	"github.com/mahaj/baithak/pkg/registry"
	"github.com/mahaj/baithak/pkg/snowflake"
	"github.com/mahaj/baithak/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		logger.Error("init snowflake node", "error", err)
		os.Exit(1)
	}

	st, err := store.NewScylla(cfg.ScyllaHosts, cfg.ScyllaKeyspace, node)
	if err != nil {
		logger.Error("connect store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	tracker := presence.NewTracker(rdb)

	var bus registry.Bus
	switch cfg.Bus {
	case config.BusMemory:
		bus = registry.NewMemoryBus()
	case config.BusKafka:
		bus = registry.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		bus = registry.NewRedisBus(rdb)
	}
	reg := registry.New(logger, bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := reg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("registry stopped", "error", err)
			stop()
		}
	}()

	gw := NewGateway(logger, st, reg, tracker, auth.New(cfg.JWTSecret))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room_slug}", gw.ServeWS)
	mux.HandleFunc("GET /rooms/{room_id}/users", gw.ServePresence)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr, "bus", cfg.Bus)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := reg.Close(); err != nil {
		logger.Warn("registry close", "error", err)
	}
}
