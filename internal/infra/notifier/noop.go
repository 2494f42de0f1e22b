package notifier

import (
	"context"

	"podreplay/internal/poller"
)

// NoopNotifier discards every report. Used when no webhook is
// configured so callers never have to nil-check their notifier.
type NoopNotifier struct{}

// NewNoopNotifier creates a NoopNotifier.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (n *NoopNotifier) NotifySweep(context.Context, poller.Report) error {
	return nil
}
