package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/duelhub/debate-dueler/internal/config"
	"github.com/duelhub/debate-dueler/internal/game"
	"github.com/duelhub/debate-dueler/internal/host"
	"github.com/duelhub/debate-dueler/internal/identity"
	"github.com/duelhub/debate-dueler/internal/logging"
	"github.com/duelhub/debate-dueler/internal/metrics"
	"github.com/duelhub/debate-dueler/internal/server"
	"github.com/duelhub/debate-dueler/internal/store"
	pgstore "github.com/duelhub/debate-dueler/internal/store/postgres"
	redisstore "github.com/duelhub/debate-dueler/internal/store/redis"
	ws "github.com/duelhub/debate-dueler/pkg/ws"
)

// Application aggregates shared infrastructure (archive, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *goredis.Client
	http  *http.Server
}

// New bootstraps config, logger, Redis, the optional Postgres archive and the
// HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	var pool *pgxpool.Pool
	var archive store.Archive
	if cfg.Postgres.Enabled() {
		var err error
		pool, err = pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		archive = pgstore.NewArchive(pool)
	} else {
		logger.Warn().Msg("deck archive disabled (PG_HOST not set)")
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	gameStore := redisstore.NewStore(redisClient, logger)

	verifier := identity.NewTokenVerifier(identity.TokenConfig{
		Secret: []byte(cfg.Security.ContextTokenSecret),
		Issuer: cfg.Name,
	})

	var perms identity.PermissionSource = identity.StaticPermissions{}
	if cfg.Platform.Enabled() {
		perms = identity.NewPlatformClient(identity.PlatformConfig{
			BaseURL:      cfg.Platform.BaseURL,
			TokenURL:     cfg.Platform.TokenURL,
			ClientID:     cfg.Platform.ClientID,
			ClientSecret: cfg.Platform.ClientSecret,
			Timeout:      cfg.Platform.Timeout,
		}, logger)
	} else {
		logger.Warn().Msg("platform client not configured; all requesters are non-elevated")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := ws.NewHub(logger)
	actions := host.NewNopActions(logger)

	router := game.NewHandler(gameStore, archive, hub, perms, actions, m,
		game.HandlerOptions{DealSize: cfg.Game.DealSize}, logger)
	wsHandler := game.NewWSHandler(router, hub, verifier)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, wsHandler.HandleWebSocket)

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
