package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fundledger/internal/http/handlers"
	httpapi "fundledger/internal/http/httpapi"
	"fundledger/internal/infra"
	"fundledger/internal/infra/geoip"
	"fundledger/internal/ledger"
	"fundledger/internal/metrics"
	"fundledger/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open ledger store")
	}
	defer store.Close()

	m := metrics.New()
	l, err := ledger.New(ctx, ledger.Options{
		Admin:    cfg.Admin(),
		Store:    store.Store,
		Logger:   logger,
		Observer: m,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load ledger")
	}
	m.SetLastSeq(l.Events().LastSeq())

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	app := handlers.NewApp(l, logger)
	app.Ready = store.Ping

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:        logger,
		JWTSecret:     cfg.JWTSecret,
		JWTIssuer:     cfg.JWTIssuer,
		CORSOrigins:   cfg.CORSOrigins,
		RateLimit:     cfg.RateLimitPerMin,
		DefaultLocale: cfg.DefaultLocale,
		CountryLookup: resolver.Lookup(),
		Metrics:       m,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("driver", cfg.StoreDriver).
			Str("admin", l.Admin().String()).
			Uint64("last_seq", l.Events().LastSeq()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
