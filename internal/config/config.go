package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"courtside"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Allocation Allocation
	Holds      Holds
	Dispatcher Dispatcher
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds holds/lock/pubsub configuration.
type Redis struct {
	Addr         string `env:"REDIS_ADDR,notEmpty"`
	DB           int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	EventChannel string `env:"REDIS_EVENT_CHANNEL" envDefault:"alloc:events"`
}

// Allocation tunes the match allocator.
type Allocation struct {
	PoolSize        int           `env:"ALLOC_POOL_SIZE" envDefault:"8"`
	SessionBudget   time.Duration `env:"ALLOC_SESSION_BUDGET" envDefault:"5h"`
	UrgentThreshold time.Duration `env:"ALLOC_URGENT_THRESHOLD" envDefault:"30m"`
	RecentOpponents int           `env:"ALLOC_RECENT_OPPONENTS" envDefault:"3"`
	SplitGroups     bool          `env:"ALLOC_SPLIT_GROUPS" envDefault:"false"`
}

// Holds governs participant reservations while a suggestion is pending.
type Holds struct {
	TTL     time.Duration `env:"HOLD_TTL" envDefault:"2m"`
	LockTTL time.Duration `env:"HOLD_LOCK_TTL" envDefault:"10s"`
}

// Dispatcher controls the background allocation loop. Zero disables it.
type Dispatcher struct {
	Interval time.Duration `env:"DISPATCH_INTERVAL" envDefault:"15s"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Allocation.PoolSize < 4 {
		return nil, fmt.Errorf("ALLOC_POOL_SIZE must be at least 4, got %d", cfg.Allocation.PoolSize)
	}
	return cfg, nil
}
