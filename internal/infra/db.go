package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"fundledger/internal/storage/migrate"
	pgmigrations "fundledger/internal/storage/postgres/migrations"
)

const (
	dbConnectTimeout = 10 * time.Second
	dbConnLifetime   = time.Hour
	dbConnIdle       = 30 * time.Minute
)

// poolConfig derives the pgx pool settings for the ledger store.
func poolConfig(cfg *Config) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, errors.New("db: config is required")
	}
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse DATABASE_URL: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		pc.MaxConns = cfg.DBMaxConns
	}
	pc.MinConns = min(1, pc.MaxConns)
	pc.MaxConnLifetime = dbConnLifetime
	pc.MaxConnIdleTime = dbConnIdle
	pc.ConnConfig.RuntimeParams["application_name"] = "fundledger"
	return pc, nil
}

// NewDBPool connects the pgx pool and verifies it with a ping.
func NewDBPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return pool, nil
}

// MigratePostgres applies the embedded schema. Migrations use a short lived
// database/sql handle on lib/pq, separate from the pgx pool.
func MigratePostgres(ctx context.Context, databaseURL string) (err error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("migrate: close: %w", cerr)
		}
	}()
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("migrate: ping: %w", err)
	}
	return migrate.Apply(ctx, db, pgmigrations.FS, ".", migrate.Postgres)
}
