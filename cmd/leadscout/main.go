package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/leadstack/leadscout/internal/config"
	"github.com/leadstack/leadscout/internal/db"
	dbMemory "github.com/leadstack/leadscout/internal/db/memory"
	dbRedis "github.com/leadstack/leadscout/internal/db/redis"
	logpkg "github.com/leadstack/leadscout/internal/logger"
	"github.com/leadstack/leadscout/internal/metrics"
	progressrepo "github.com/leadstack/leadscout/internal/repository/progress"
	resultsrepo "github.com/leadstack/leadscout/internal/repository/results"
	chiTransport "github.com/leadstack/leadscout/internal/transport/chi"
	"github.com/leadstack/leadscout/internal/transport/places"
	"github.com/leadstack/leadscout/internal/transport/website"
	extractuc "github.com/leadstack/leadscout/internal/usecase/extract"
	healthuc "github.com/leadstack/leadscout/internal/usecase/health"
	searchuc "github.com/leadstack/leadscout/internal/usecase/search"
	"github.com/leadstack/leadscout/internal/version"
)

const keyPrefix = "leadscout:"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting leadscout API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Create repositories
	retention := time.Duration(cfg.Search.RetentionHours) * time.Hour
	progressRepo := progressrepo.New(store, keyPrefix, retention)
	resultsRepo := resultsrepo.New(store, keyPrefix, retention)

	// Place-search provider client
	provider := places.NewClient(&places.Config{
		BaseURL:  cfg.Provider.BaseURL,
		APIKey:   cfg.Provider.APIKey,
		PageSize: cfg.Provider.PageSize,
		Timeout:  time.Duration(cfg.Provider.RequestTimeoutSec) * time.Second,
		Language: cfg.Provider.Language,
		Region:   cfg.Provider.Region,
		Logger:   logger,
	})

	// Create use case services
	extractor := extractuc.New(
		bandsFromConfig(cfg.Estimation.EmployeeBands),
		bandsFromConfig(cfg.Estimation.RevenueBands),
		"places",
	)

	searchSvc := searchuc.New(provider, progressRepo, resultsRepo, extractor, logger).
		WithLimits(
			cfg.Provider.MaxPages,
			time.Duration(cfg.Provider.PageDelayMs)*time.Millisecond,
			cfg.Search.MaxResults,
		).
		WithDetailDelay(time.Duration(cfg.Provider.DetailDelayMs) * time.Millisecond)
	if cfg.Enrichment.Enabled {
		enricher := website.NewEnricher(time.Duration(cfg.Enrichment.TimeoutSec)*time.Second, logger)
		searchSvc = searchSvc.WithContactFetcher(enricher)
		logger.Info("Website contact enrichment enabled")
	}

	// Health service
	healthSvc := healthuc.New(store, provider)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func bandsFromConfig(in []config.Band) []extractuc.Band {
	out := make([]extractuc.Band, len(in))
	for i, b := range in {
		out[i] = extractuc.Band{MaxReviews: b.MaxReviews, Label: b.Label}
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
