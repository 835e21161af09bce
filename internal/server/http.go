package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/gokatarajesh/courtside/internal/config"
	"github.com/gokatarajesh/courtside/internal/logging"
)

// Handlers are the domain endpoints mounted on the API mux.
type Handlers struct {
	Suggest     http.HandlerFunc
	Accept      http.HandlerFunc
	Reject      http.HandlerFunc
	FinishMatch http.HandlerFunc
	CheckIn     http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) and the allocation API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, gatherer prometheus.Gatherer, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redis); err != nil {
			reqLogger := logging.FromContext(r.Context())
			reqLogger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	mount(mux, "POST /v1/courts/{courtID}/suggestions", h.Suggest)
	mount(mux, "POST /v1/suggestions/{id}/accept", h.Accept)
	mount(mux, "POST /v1/suggestions/{id}/reject", h.Reject)
	mount(mux, "POST /v1/matches/{id}/finish", h.FinishMatch)
	mount(mux, "POST /v1/checkins", h.CheckIn)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           withLogging(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func mount(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	if handler == nil {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "handler not configured", http.StatusNotImplemented)
		})
		return
	}
	mux.HandleFunc(pattern, handler)
}

// withLogging attaches the logger to each request context and logs completed requests.
func withLogging(logger zerolog.Logger, next http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})
	inject := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), logger)))
		})
	}
	return hlog.NewHandler(logger)(inject(access(next)))
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
