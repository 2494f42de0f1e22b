package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	pkgcfg "podreplay/internal/pkg/config"
	"podreplay/internal/poller"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// LoadSlackConfigFromEnv reads SLACK_WEBHOOK_URL and
// SLACK_NOTIFY_TIMEOUT. An empty webhook URL disables the channel.
func LoadSlackConfigFromEnv() SlackConfig {
	url := pkgcfg.LoadEnvString("SLACK_WEBHOOK_URL", "")
	timeout := pkgcfg.LoadEnvDuration("SLACK_NOTIFY_TIMEOUT", 10*time.Second, pkgcfg.ValidatePositiveDuration)
	return SlackConfig{
		Enabled:    url != "",
		WebhookURL: url,
		Timeout:    timeout.Value.(time.Duration),
	}
}

// SlackNotifier posts sweep reports to a Slack Incoming Webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackNotifier creates a SlackNotifier. The rate limiter is pinned
// to 1 req/s, Slack's documented webhook limit.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(1.0, 1),
	}
}

// slackPayload is the Block Kit shape posted to the webhook.
type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string           `json:"type"`
	Text     *slackTextObject `json:"text,omitempty"`
	Elements []slackTextObject `json:"elements,omitempty"`
}

type slackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const maxFailureLines = 10

func (s *SlackNotifier) buildPayload(report poller.Report) slackPayload {
	summary := summarizeReport(report)

	blocks := []slackBlock{{
		Type: "section",
		Text: &slackTextObject{Type: "mrkdwn", Text: "*" + summary + "*"},
	}}
	if lines := failureLines(report.Failures, maxFailureLines); lines != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackTextObject{Type: "mrkdwn", Text: lines},
		})
	}
	blocks = append(blocks, slackBlock{
		Type: "context",
		Elements: []slackTextObject{{
			Type: "mrkdwn",
			Text: "started " + report.Started.Format(time.RFC3339),
		}},
	})

	return slackPayload{Text: summary, Blocks: blocks}
}

// NotifySweep delivers the report, retrying transient failures with
// exponential backoff and honouring the Retry-After of every 429, within
// three attempts in all.
func (s *SlackNotifier) NotifySweep(ctx context.Context, report poller.Report) error {
	if !s.config.Enabled {
		return nil
	}
	requestID := uuid.NewString()
	payload := s.buildPayload(report)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("slack: marshal payload: %w", err)
	}

	return deliverWithRetry(ctx, "slack", requestID, s.rateLimiter, func(ctx context.Context) error {
		return s.post(ctx, body)
	})
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return classifyWebhookStatus(resp)
}

// classifyWebhookStatus maps an HTTP response to the shared error
// taxonomy: nil on 2xx, RateLimitError on 429, ClientError on other
// 4xx, ServerError on 5xx.
func classifyWebhookStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 1 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("webhook rejected request: %s", resp.Status)}
	default:
		return &ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("webhook server error: %s", resp.Status)}
	}
}

// deliverWithRetry runs attempt up to three times. A 429 waits out the
// requested backoff and counts as one attempt; 5xx and transport
// errors back off exponentially; other 4xx abort immediately.
func deliverWithRetry(ctx context.Context, channel, requestID string, limiter *RateLimiter, attempt func(context.Context) error) error {
	const maxAttempts = 3
	backoff := 500 * time.Millisecond

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if err := limiter.Allow(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", channel, err)
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}

		slog.Warn("notification attempt failed",
			slog.String("channel", channel),
			slog.String("request_id", requestID),
			slog.Int("attempt", i+1),
			slog.Any("error", lastErr))

		var rle *RateLimitError
		switch {
		case errors.As(lastErr, &rle):
			if !sleepCtx(ctx, rle.RetryAfter) {
				return ctx.Err()
			}
		case isRetryableError(lastErr):
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff *= 2
		default:
			return lastErr
		}
	}
	return fmt.Errorf("%s: delivery failed after %d attempts: %w", channel, maxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
