package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"fundledger/internal/domain"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string        `env:"APP_ENV" envDefault:"development"`
	LogLevel    string        `env:"LOG_LEVEL"`
	Port        string        `env:"PORT" envDefault:"8080"`
	StoreDriver string        `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL string        `env:"DATABASE_URL"`
	SQLitePath  string        `env:"SQLITE_PATH"`
	DBMaxConns  int32         `env:"DB_MAX_CONNS" envDefault:"8"`
	DBSlowQuery time.Duration `env:"DB_SLOW_QUERY" envDefault:"250ms"`

	AdminAddress string `env:"LEDGER_ADMIN_ADDRESS"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"fundledger"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	CORSOrigins      []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	GeoIPDBPath   string `env:"GEOIP_DB_PATH"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`

	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisChannel   string        `env:"REDIS_CHANNEL" envDefault:"fundledger:events"`
	ProjectorPoll  time.Duration `env:"PROJECTOR_POLL_INTERVAL" envDefault:"2s"`
	ProjectorBatch int           `env:"PROJECTOR_BATCH_SIZE" envDefault:"100"`
	RedisPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:"fundledger"`
	WorkerMetrics  string        `env:"WORKER_METRICS_ADDR" envDefault:":9091"`
}

// Admin returns the configured administrator, or the zero value when unset.
func (c *Config) Admin() domain.Address {
	if c.AdminAddress == "" {
		return ""
	}
	addr, _ := domain.ParseAddress(c.AdminAddress)
	return addr
}

// DotEnvFiles are read in order by LoadConfig. Variables already set win.
var DotEnvFiles = []string{".env", ".env.local"}

// LoadConfig loads .env files when present, parses the environment and validates the result.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(DotEnvFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads each file on its own so a missing .env does not skip .env.local.
func loadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		if c.DBMaxConns <= 0 {
			return fmt.Errorf("DB_MAX_CONNS must be positive")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminAddress != "" {
		addr, err := domain.ParseAddress(c.AdminAddress)
		if err != nil {
			return fmt.Errorf("LEDGER_ADMIN_ADDRESS: %w", err)
		}
		if addr.IsZero() {
			return fmt.Errorf("LEDGER_ADMIN_ADDRESS must not be the zero address")
		}
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.ProjectorBatch <= 0 {
		return fmt.Errorf("PROJECTOR_BATCH_SIZE must be positive")
	}
	return nil
}
