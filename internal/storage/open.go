// Package storage selects the ledger store named by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"fundledger/internal/domain"
	"fundledger/internal/infra"
	"fundledger/internal/storage/memory"
	"fundledger/internal/storage/postgres"
	"fundledger/internal/storage/sqlite"
)

// Handle is an opened store with its readiness check.
type Handle struct {
	Store domain.Store
	// Ping reports whether the backing database is reachable.
	Ping  func(ctx context.Context) error
	close func()
}

// Close releases the store and any pool behind it.
func (h *Handle) Close() {
	if h.close != nil {
		h.close()
	}
}

// Open builds the store for cfg.StoreDriver. Postgres schemas are migrated
// before the pool is opened.
func Open(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Handle, error) {
	switch cfg.StoreDriver {
	case infra.StoreMemory:
		s := memory.NewStore()
		return &Handle{
			Store: s,
			Ping:  func(context.Context) error { return nil },
			close: func() { _ = s.Close() },
		}, nil

	case infra.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Handle{
			Store: s,
			Ping:  s.Ping,
			close: func() { _ = s.Close() },
		}, nil

	case infra.StorePostgres:
		if err := infra.MigratePostgres(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runner := infra.NewSQLRunner(pool, logger).WithSlowThreshold(cfg.DBSlowQuery)
		s := postgres.NewStore(runner)
		return &Handle{
			Store: s,
			Ping:  pool.Ping,
			close: func() {
				_ = s.Close()
				pool.Close()
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
