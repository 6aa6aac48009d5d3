package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fundledger/internal/infra"
	"fundledger/internal/metrics"
	"fundledger/internal/projection"
	"fundledger/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", "worker").Logger()

	if cfg.StoreDriver == infra.StoreMemory {
		logger.Fatal().Msg("worker: memory store is process-local, set STORE_DRIVER to sqlite or postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: open ledger store failed")
	}
	defer store.Close()

	rdb, err := projection.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer rdb.Close()

	m := metrics.New()
	metricsSrv := &http.Server{
		Addr:              cfg.WorkerMetrics,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: metrics listener failed")
		}
	}()

	p := &projection.Projector{
		Source:    store.Store,
		Sink:      projection.NewRedisSink(rdb, cfg.RedisPrefix, cfg.RedisChannel),
		Logger:    logger,
		Interval:  cfg.ProjectorPoll,
		Batch:     cfg.ProjectorBatch,
		OnApplied: m.Projected,
	}
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info().Msg("worker: stopped")
}
