// Package worker holds the runtime scaffolding for the background
// poller binary: its environment-driven configuration, health server,
// and Prometheus metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"podreplay/internal/pkg/config"
)

// PollerConfig controls the cron schedule, timezone, and operational
// parameters of the background sweep. Every field has a safe default
// and LoadConfigFromEnv never fails: invalid values fall back to the
// default with a warning and a metrics increment (fail-open).
type PollerConfig struct {
	// CronSchedule is the five-field cron expression driving sweeps.
	// Default: "*/15 * * * *" (every fifteen minutes).
	CronSchedule string

	// Timezone is the IANA zone the cron schedule is evaluated in.
	// Default: "UTC".
	Timezone string

	// SweepTimeout bounds one full sweep across all feeds.
	// Default: 10 minutes.
	SweepTimeout time.Duration

	// HealthPort is where the liveness/readiness endpoints listen.
	// Default: 9091.
	HealthPort int
}

// DefaultConfig returns the production defaults: a fifteen-minute
// sweep cadence in UTC, a ten-minute sweep budget, and the usual
// exporter-adjacent health port.
func DefaultConfig() PollerConfig {
	return PollerConfig{
		CronSchedule: "*/15 * * * *",
		Timezone:     "UTC",
		SweepTimeout: 10 * time.Minute,
		HealthPort:   9091,
	}
}

// Validate checks every field, aggregating failures so an operator
// sees all problems at once instead of one per restart.
func (c *PollerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.SweepTimeout); err != nil {
		errs = append(errs, fmt.Errorf("sweep timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the poller configuration from environment
// variables with validation and automatic fallback to defaults.
//
// Environment variables:
//   - POLL_SCHEDULE: cron expression (default "*/15 * * * *")
//   - POLLER_TIMEZONE: IANA zone name (default "UTC")
//   - SWEEP_TIMEOUT: duration, 1m-4h (default 10m)
//   - POLLER_HEALTH_PORT: 1024-65535 (default 9091)
//
// The error return is always nil; it exists so call sites read like
// every other config loader in the codebase.
func LoadConfigFromEnv(logger *slog.Logger, metrics *PollerMetrics) (*PollerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("POLL_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	fallbackApplied = recordFallback(logger, metrics, result, "cron_schedule", "CronSchedule") || fallbackApplied

	result = config.LoadEnvWithFallback("POLLER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	fallbackApplied = recordFallback(logger, metrics, result, "timezone", "Timezone") || fallbackApplied

	result = config.LoadEnvDuration("SWEEP_TIMEOUT", cfg.SweepTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.SweepTimeout = result.Value.(time.Duration)
	fallbackApplied = recordFallback(logger, metrics, result, "sweep_timeout", "SweepTimeout") || fallbackApplied

	result = config.LoadEnvInt("POLLER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	fallbackApplied = recordFallback(logger, metrics, result, "health_port", "HealthPort") || fallbackApplied

	metrics.SetFallbackActive("any", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}

func recordFallback(logger *slog.Logger, metrics *PollerMetrics, result config.ConfigLoadResult, metricField, logField string) bool {
	if !result.FallbackApplied {
		return false
	}
	metrics.RecordValidationError(metricField)
	metrics.RecordFallback(metricField, "default")
	for _, warning := range result.Warnings {
		logger.Warn("Configuration fallback applied",
			slog.String("field", logField),
			slog.String("warning", warning))
	}
	return true
}
