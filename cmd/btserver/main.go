// cmd/btserver is the backtest service: it accepts backtest requests
// over HTTP, runs the core pipeline, journals completed runs to SQLite,
// publishes them to Redis (when configured), broadcasts them to
// WebSocket clients, and exposes Prometheus metrics.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtest-systemv1/config"
	"backtest-systemv1/internal/api"
	"backtest-systemv1/internal/data"
	"backtest-systemv1/internal/gateway"
	"backtest-systemv1/internal/logger"
	"backtest-systemv1/internal/metrics"
	redisstore "backtest-systemv1/internal/store/redis"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
)

func main() {
	slogger := logger.Init("btserver", slog.LevelInfo)
	cfg := config.Load()

	m := metrics.New()
	go metrics.Serve(cfg.MetricsAddr)

	journal, err := sqlitestore.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[btserver] journal open failed: %v", err)
	}
	defer journal.Close()

	var publisher *redisstore.Publisher
	if cfg.RedisAddr != "" {
		publisher, err = redisstore.New(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("[btserver] redis connect failed: %v", err)
		}
		defer publisher.Close()
	} else {
		slogger.Info("redis publishing disabled (REDIS_ADDR not set)")
	}

	hub := gateway.NewHub(func(n int) { m.WSClients.Set(float64(n)) })

	server := &api.Server{
		Journal:             journal,
		Publisher:           publisher,
		Hub:                 hub,
		Metrics:             m,
		Loader:              data.NewStooqLoader(cfg.DataCacheDir),
		AnnualizationFactor: cfg.AnnualizationFactor,
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(server),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slogger.Info("listening", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[btserver] http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("[btserver] shutdown: %v", err)
	}
}
