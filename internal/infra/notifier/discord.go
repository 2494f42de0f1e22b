package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	pkgcfg "podreplay/internal/pkg/config"
	"podreplay/internal/poller"
)

// DiscordConfig contains configuration for Discord webhook
// notifications.
type DiscordConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// LoadDiscordConfigFromEnv reads DISCORD_WEBHOOK_URL and
// DISCORD_NOTIFY_TIMEOUT. An empty webhook URL disables the channel.
func LoadDiscordConfigFromEnv() DiscordConfig {
	url := pkgcfg.LoadEnvString("DISCORD_WEBHOOK_URL", "")
	timeout := pkgcfg.LoadEnvDuration("DISCORD_NOTIFY_TIMEOUT", 10*time.Second, pkgcfg.ValidatePositiveDuration)
	return DiscordConfig{
		Enabled:    url != "",
		WebhookURL: url,
		Timeout:    timeout.Value.(time.Duration),
	}
}

// DiscordNotifier posts sweep reports to a Discord webhook as a
// single embed.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewDiscordNotifier creates a DiscordNotifier. Discord allows bursts
// but sustained webhook traffic is throttled around 5 req/2s; 2 req/s
// with a burst of 2 stays comfortably under that.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(2.0, 2),
	}
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

const (
	discordColorGreen = 0x2ecc71
	discordColorRed   = 0xe74c3c

	maxEmbedDescription = 4096
)

func (d *DiscordNotifier) buildPayload(report poller.Report) discordPayload {
	color := discordColorGreen
	if len(report.Failures) > 0 {
		color = discordColorRed
	}

	desc := failureLines(report.Failures, maxFailureLines)
	if len(desc) > maxEmbedDescription {
		desc = desc[:maxEmbedDescription-3] + "..."
	}

	return discordPayload{
		Embeds: []discordEmbed{{
			Title:       summarizeReport(report),
			Description: desc,
			Color:       color,
			Timestamp:   report.Started.Format(time.RFC3339),
		}},
	}
}

// NotifySweep delivers the report with the same retry policy as the
// Slack channel.
func (d *DiscordNotifier) NotifySweep(ctx context.Context, report poller.Report) error {
	if !d.config.Enabled {
		return nil
	}
	requestID := uuid.NewString()

	body, err := json.Marshal(d.buildPayload(report))
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	return deliverWithRetry(ctx, "discord", requestID, d.rateLimiter, func(ctx context.Context) error {
		return d.post(ctx, body)
	})
}

func (d *DiscordNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord: post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return classifyWebhookStatus(resp)
}
