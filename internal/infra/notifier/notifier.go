// Package notifier delivers sweep reports from the background poller
// to operator-facing channels (Slack, Discord) via incoming webhooks.
// Implementations handle rate limiting, retries, and error logging
// internally; callers just hand over a report.
package notifier

import (
	"context"
	"errors"

	"podreplay/internal/poller"
)

// Notifier sends a notification summarizing one completed poller sweep.
type Notifier interface {
	// NotifySweep reports the outcome of a sweep. Implementations
	// should respect context cancellation and return a non-nil error
	// only after exhausting their retry budget.
	NotifySweep(ctx context.Context, report poller.Report) error
}

// Multi fans a report out to every configured channel in order,
// joining any failures so one broken webhook never hides another.
type Multi []Notifier

func (m Multi) NotifySweep(ctx context.Context, report poller.Report) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifySweep(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
