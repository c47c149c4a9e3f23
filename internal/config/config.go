package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"debate-dueler"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Platform Platform
	Game     Game
}

// Postgres captures connection info for the durable deck archive. Optional:
// with no host configured the archive is disabled and decks live only in
// Redis.
type Postgres struct {
	Host     string `env:"PG_HOST"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Enabled reports whether an archive connection is configured.
func (p Postgres) Enabled() bool { return p.Host != "" }

// DSN builds the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds the primary store configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores signing secrets.
type Security struct {
	ContextTokenSecret string `env:"CONTEXT_TOKEN_SECRET,notEmpty"`
}

// Platform configures the hosting platform API client used for moderator
// permission lookups. Optional: unset leaves every requester non-elevated.
type Platform struct {
	BaseURL      string        `env:"PLATFORM_BASE_URL"`
	TokenURL     string        `env:"PLATFORM_TOKEN_URL"`
	ClientID     string        `env:"PLATFORM_CLIENT_ID"`
	ClientSecret string        `env:"PLATFORM_CLIENT_SECRET"`
	Timeout      time.Duration `env:"PLATFORM_HTTP_TIMEOUT" envDefault:"5s"`
}

// Enabled reports whether the platform client can be constructed.
func (p Platform) Enabled() bool { return p.BaseURL != "" && p.TokenURL != "" }

// Game groups gameplay tuning.
type Game struct {
	DealSize          int           `env:"GAME_DEAL_SIZE" envDefault:"10"`
	RevealDuration    time.Duration `env:"GAME_REVEAL_DURATION" envDefault:"3500ms"`
	ScoreAnimDuration time.Duration `env:"GAME_SCORE_ANIM_DURATION" envDefault:"750ms"`
}

// Load parses environment variables into App config. Postgres and Platform
// sections may stay unset; the notEmpty tags mark what must be present.
func Load(_ context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
