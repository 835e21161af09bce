package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/courtside/internal/config"
	"github.com/gokatarajesh/courtside/internal/db/repository"
	"github.com/gokatarajesh/courtside/internal/logging"
	"github.com/gokatarajesh/courtside/internal/match"
	matchqueue "github.com/gokatarajesh/courtside/internal/match/queue"
	"github.com/gokatarajesh/courtside/internal/placement"
	"github.com/gokatarajesh/courtside/internal/server"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	dispatcher *match.Dispatcher
	listener   *match.Listener
	bgCancels  []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	participantRepo := repository.NewParticipantRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	matchRepo := repository.NewMatchRepository(pool)

	allocator := match.NewAllocator(participantRepo, match.Options{
		PoolSize:        cfg.Allocation.PoolSize,
		SessionBudget:   cfg.Allocation.SessionBudget,
		UrgentThreshold: cfg.Allocation.UrgentThreshold,
		RecentOpponents: cfg.Allocation.RecentOpponents,
		SplitGroups:     cfg.Allocation.SplitGroups,
	}, logger)

	matchSvc := match.NewService(match.Deps{
		Courts:      locationRepo,
		Queue:       queueRepo,
		Matches:     matchRepo,
		Sessions:    participantRepo,
		Holds:       matchqueue.NewManager(redisClient, logger, cfg.Holds.TTL, cfg.Holds.LockTTL),
		Suggestions: match.NewSuggestionStore(redisClient, cfg.Holds.TTL, logger),
		Allocator:   allocator,
		Events:      match.NewPublisher(redisClient, cfg.Redis.EventChannel, logger),
		Metrics:     match.NewMetrics(reg),
	}, nil, logger)

	placementSvc := placement.NewService(participantRepo, locationRepo, queueRepo, reg, logger)

	matchHTTP := match.NewHTTPHandlers(matchSvc, logger)
	placementHTTP := placement.NewHTTPHandler(placementSvc, logger)

	var dispatcher *match.Dispatcher
	if interval := cfg.Dispatcher.Interval; interval > 0 {
		dispatcher = match.NewDispatcher(locationRepo, matchSvc, interval, logger)
	} else {
		logger.Warn().Msg("dispatcher disabled; suggestions only on request")
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, reg, server.Handlers{
		Suggest:     matchHTTP.Suggest,
		Accept:      matchHTTP.Accept,
		Reject:      matchHTTP.Reject,
		FinishMatch: matchHTTP.Finish,
		CheckIn:     placementHTTP.CheckIn,
	})

	return &Application{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		http:       apiServer,
		dispatcher: dispatcher,
		listener:   match.NewListener(redisClient, cfg.Redis.EventChannel, nil, logger),
		bgCancels:  make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

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

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.listener != nil {
		a.background(ctx, "event listener", a.listener.Run)
	}
	if a.dispatcher != nil {
		a.background(ctx, "match dispatcher", a.dispatcher.Run)
	}
}

func (a *Application) background(ctx context.Context, name string, run func(context.Context) error) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
		}
	}()
}
