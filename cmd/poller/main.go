// Command poller runs the background sweep: on a cron schedule it
// refreshes the notice-history cache for every tracked feed so
// /replay requests served by replayd rarely pay for a synchronous
// upstream round trip.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"podreplay/internal/config"
	"podreplay/internal/fetcher"
	"podreplay/internal/infra/adapter/persistence/postgres"
	"podreplay/internal/infra/db"
	"podreplay/internal/infra/notifier"
	"podreplay/internal/infra/worker"
	"podreplay/internal/observability/logging"
	"podreplay/internal/poller"
	"podreplay/internal/ratelimit"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollerMetrics := worker.NewPollerMetrics()
	pollerConfig, err := worker.LoadConfigFromEnv(logger, pollerMetrics)
	if err != nil {
		logger.Error("failed to load poller configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("poller configuration loaded",
		slog.String("cron_schedule", pollerConfig.CronSchedule),
		slog.String("timezone", pollerConfig.Timezone),
		slog.Duration("sweep_timeout", pollerConfig.SweepTimeout),
		slog.Int("health_port", pollerConfig.HealthPort))

	notify := buildNotifier(logger)

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", pollerConfig.HealthPort)
	healthServer := worker.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	store := postgres.NewFeedStore(database)
	upstream := ratelimit.LimitedFetcher{
		Upstream: fetcher.New(cfg.UserAgent),
		Limits:   ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	sweeper := poller.New(store, &upstream)

	runCron(ctx, logger, sweeper, notify, pollerConfig, pollerMetrics, healthServer)
}

func initDatabase(logger *slog.Logger, dsn string) *sql.DB {
	database := db.Open(dsn)
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// buildNotifier assembles the enabled webhook channels; with none
// configured the poller still runs, reports go nowhere.
func buildNotifier(logger *slog.Logger) notifier.Notifier {
	var channels notifier.Multi

	if slackCfg := notifier.LoadSlackConfigFromEnv(); slackCfg.Enabled {
		channels = append(channels, notifier.NewSlackNotifier(slackCfg))
		logger.Info("slack channel enabled")
	}
	if discordCfg := notifier.LoadDiscordConfigFromEnv(); discordCfg.Enabled {
		channels = append(channels, notifier.NewDiscordNotifier(discordCfg))
		logger.Info("discord channel enabled")
	}

	if len(channels) == 0 {
		logger.Info("no notification channels configured")
		return notifier.NewNoopNotifier()
	}
	return channels
}

// runCron blocks, running sweeps on the configured schedule until a
// shutdown signal arrives. One sweep runs immediately at startup so a
// fresh deployment doesn't wait a full cron period for warm caches.
func runCron(ctx context.Context, logger *slog.Logger, sweeper *poller.Poller, notify notifier.Notifier, cfg *worker.PollerConfig, metrics *worker.PollerMetrics, health *worker.HealthServer) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		os.Exit(1)
	}

	job := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, cfg.SweepTimeout)
		defer cancel()

		report, err := sweeper.Sweep(sweepCtx)
		metrics.RecordSweepDuration(report.Duration.Seconds())
		if err != nil {
			metrics.RecordSweepRun("failure")
			logger.Error("sweep failed", slog.Any("error", err))
			return
		}
		metrics.RecordSweepRun("success")
		metrics.RecordFeedsRefreshed(report.Refreshed)
		metrics.RecordLastSuccess()
		logger.Info("sweep completed",
			slog.Int("feeds_total", report.FeedsTotal),
			slog.Int("refreshed", report.Refreshed),
			slog.Int("unreachable", len(report.Failures)),
			slog.Duration("duration", report.Duration))

		if err := notify.NotifySweep(sweepCtx, report); err != nil {
			logger.Warn("sweep notification failed", slog.Any("error", err))
		}
	}

	c := cron.New(cron.WithLocation(location))
	if _, err := c.AddFunc(cfg.CronSchedule, job); err != nil {
		logger.Error("invalid cron schedule", slog.String("schedule", cfg.CronSchedule), slog.Any("error", err))
		os.Exit(1)
	}

	health.SetReady(true)
	job()
	c.Start()
	logger.Info("poller started", slog.String("schedule", cfg.CronSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down poller...")

	health.SetReady(false)
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("poller stopped")
}
