package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"taskboard/internal/middleware"
	"taskboard/internal/tasks"
	"taskboard/internal/telemetry"
	"taskboard/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := newLoggerFromEnv()
	slog.SetDefault(logger) // for third-party packages that use slog

	shutdownTracing, err := telemetry.SetupTracing(context.Background())
	if err != nil {
		logger.Error("tracing_setup_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo, closeRepo, err := newRepoFromEnv(logger)
	if err != nil {
		logger.Error("store_open_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	addr := envOr("ADDR", ":8080")
	srv := &http.Server{
		Addr:    addr,
		Handler: newRouter(repo, logger),
	}

	go func() {
		logger.Info("server_listen", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server_error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"store": func(ctx context.Context) error {
				return closeRepo()
			},
			"tracing": shutdownTracing,
		},
	)
	os.Exit(<-wait)
}

// newRouter wires the middleware stack, the task API, the metrics and
// health endpoints, and the static client.
func newRouter(repo tasks.Repository, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// RequestID first so downstream can include it (logger, spans)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Tracing)
	r.Use(middleware.RateLimit(newLimiterFromEnv()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", middleware.MetricsHandler())

	tasks.RegisterRoutes(r, repo, logger)

	// Static client; chi routes the API paths above first.
	r.Handle("/*", web.Handler())

	return r
}

// newRepoFromEnv opens the GORM store at DB_PATH, or an in-memory
// store when DB_PATH=memory (handy for demos and tests).
func newRepoFromEnv(logger *slog.Logger) (tasks.Repository, func() error, error) {
	path := envOr("DB_PATH", "tasks.db")
	if path == "memory" {
		logger.Info("store_open", slog.String("driver", "memory"))
		return tasks.NewInMemoryRepo(), func() error { return nil }, nil
	}

	repo, err := tasks.NewGormRepo(path)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.AutoMigrate(); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	logger.Info("store_open", slog.String("driver", "sqlite"), slog.String("path", path))
	return repo, repo.Close, nil
}

// newLimiterFromEnv builds the global limiter; RATE_LIMIT_RPS unset
// or zero disables limiting.
func newLimiterFromEnv() *rate.Limiter {
	return middleware.NewLimiter(
		envFloat("RATE_LIMIT_RPS", 0),
		envInt("RATE_LIMIT_BURST", 1),
	)
}

func newLoggerFromEnv() *slog.Logger {
	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
