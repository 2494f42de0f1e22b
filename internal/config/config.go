// Package config loads the replay engine's runtime settings from the
// environment, using the validating env-loading helpers in
// internal/pkg/config so a malformed value falls back to a safe
// default with a logged warning rather than aborting startup.
package config

import (
	"fmt"
	"time"

	pkgconfig "podreplay/internal/pkg/config"
)

// Config holds every setting the two binaries (cmd/replayd,
// cmd/poller) need.
type Config struct {
	// ListenAddr is the address the HTTP server binds.
	ListenAddr string
	// DatabaseURL is the Postgres connection string (see
	// internal/infra/db.Open).
	DatabaseURL string
	// UserAgent identifies this server to upstream feeds.
	UserAgent string
	// PollCronSchedule drives the background poller's sweep cadence.
	PollCronSchedule string
	// PollTimezone is the timezone the cron schedule is interpreted in.
	PollTimezone string
	// RequestTimeout bounds one HTTP handler invocation end to end.
	RequestTimeout time.Duration
	// RateLimitRPS and RateLimitBurst configure the per-origin token
	// bucket guarding upstream fetches (see internal/ratelimit).
	RateLimitRPS   float64
	RateLimitBurst int

	// Warnings collects every fallback applied while loading, for the
	// caller to log at startup.
	Warnings []string
}

// Load reads Config from an optional YAML file (PODREPLAY_CONFIG,
// default "podreplay.yaml") layered under the environment, applying
// defaults and validation. It never fails: invalid values fall back
// to a default and are recorded in Warnings.
func Load() Config {
	var warnings []string

	addWarnings := func(r pkgconfig.ConfigLoadResult) {
		warnings = append(warnings, r.Warnings...)
	}

	file, fileWarnings := loadFile(pkgconfig.LoadEnvString("PODREPLAY_CONFIG", "podreplay.yaml"))
	warnings = append(warnings, fileWarnings...)

	listenAddr := pkgconfig.LoadEnvString("LISTEN_ADDR", orDefault(file.ListenAddr, ":8080"))
	databaseURL := pkgconfig.LoadEnvString("DATABASE_URL", file.DatabaseURL)
	userAgent := pkgconfig.LoadEnvString("USER_AGENT", orDefault(file.UserAgent, "PodReplay/1.0 (+https://example.invalid/podreplay)"))

	cronResult := pkgconfig.LoadEnvWithFallback("POLL_CRON_SCHEDULE", orDefault(file.PollCronSchedule, "*/15 * * * *"), pkgconfig.ValidateCronSchedule)
	addWarnings(cronResult)

	tzResult := pkgconfig.LoadEnvWithFallback("POLL_TIMEZONE", orDefault(file.PollTimezone, "UTC"), pkgconfig.ValidateTimezone)
	addWarnings(tzResult)

	timeoutResult := pkgconfig.LoadEnvDuration("REQUEST_TIMEOUT", orDefault(time.Duration(file.RequestTimeout), 30*time.Second), func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 5*time.Minute)
	})
	addWarnings(timeoutResult)

	rpsResult := pkgconfig.LoadEnvInt("RATE_LIMIT_RPS", orDefault(file.RateLimitRPS, 2), func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 1000)
	})
	addWarnings(rpsResult)

	burstResult := pkgconfig.LoadEnvInt("RATE_LIMIT_BURST", orDefault(file.RateLimitBurst, 5), func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 1000)
	})
	addWarnings(burstResult)

	return Config{
		ListenAddr:       listenAddr,
		DatabaseURL:      databaseURL,
		UserAgent:        userAgent,
		PollCronSchedule: cronResult.Value.(string),
		PollTimezone:     tzResult.Value.(string),
		RequestTimeout:   timeoutResult.Value.(time.Duration),
		RateLimitRPS:     float64(rpsResult.Value.(int)),
		RateLimitBurst:   burstResult.Value.(int),
		Warnings:         warnings,
	}
}

// Validate reports a terminal configuration error — one Load cannot
// paper over with a fallback, because there is no safe default.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
