// Command replayd serves the /replay and /summary HTTP endpoints.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"podreplay/internal/config"
	"podreplay/internal/fetcher"
	hhttp "podreplay/internal/handler/http"
	"podreplay/internal/handler/http/replaysvr"
	"podreplay/internal/handler/http/requestid"
	"podreplay/internal/infra/adapter/persistence/postgres"
	"podreplay/internal/infra/db"
	"podreplay/internal/observability/logging"
	"podreplay/internal/observability/tracing"
	"podreplay/internal/ratelimit"
	"podreplay/internal/usecase/replay"
	"podreplay/internal/usecase/summary"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg := config.Load()
	for _, w := range cfg.Warnings {
		logger.Warn("configuration fallback applied", slog.String("warning", w))
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	database := initDatabase(logger, cfg.DatabaseURL)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	store := postgres.NewFeedStore(database)

	upstream := ratelimit.LimitedFetcher{
		Upstream: fetcher.New(cfg.UserAgent),
		Limits:   ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	replaySvc := replay.New(store, &upstream)
	summarySvc := summary.New(&upstream)

	mux := buildMux(database, replaySvc, summarySvc)
	handler := applyMiddleware(logger, mux, cfg.RequestTimeout)

	runServer(logger, handler, cfg.ListenAddr, version)
}

func initDatabase(logger *slog.Logger, dsn string) *sql.DB {
	database := db.Open(dsn)
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

func buildMux(database *sql.DB, replaySvc *replay.Service, summarySvc *summary.Service) *http.ServeMux {
	mux := http.NewServeMux()

	rsvr := &replaysvr.Handler{Replay: replaySvc, Summary: summarySvc}
	rsvr.Register(mux)

	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version})
	mux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", hhttp.MetricsHandler())

	return mux
}

func applyMiddleware(logger *slog.Logger, mux *http.ServeMux, requestTimeout time.Duration) http.Handler {
	rateLimiter := hhttp.NewRateLimiter(120, time.Minute)

	var handler http.Handler = mux
	handler = hhttp.MetricsMiddleware(handler)
	handler = tracing.Middleware(handler)
	handler = hhttp.Logging(logger)(handler)
	handler = hhttp.Recover(logger)(handler)
	handler = hhttp.InputValidation()(handler)
	handler = rateLimiter.Limit(handler)
	handler = hhttp.LimitRequestBody(1 << 20)(handler)
	handler = hhttp.Timeout(requestTimeout)(handler)
	handler = requestid.Middleware(handler)
	return handler
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, addr, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	hhttp.StartSLOUpdater(ctx)

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
