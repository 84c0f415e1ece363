package services

import (
	"context"

	"rental-watch/metrics"
	"rental-watch/models"
	"rental-watch/utils"
)

// Notifier is the external notify capability.
type Notifier interface {
	Notify(ctx context.Context, ref string) error
}

// Gate calls the notifier at most once per newly discovered address per run.
// Notification is best-effort: failures are logged and never undo reconciliation.
type Gate struct {
	notifier Notifier
	enabled  bool
	logger   *utils.Logger
	metrics  *metrics.Registry
	notified *utils.StringSet
}

// NewGate returns a Gate for one run. metrics may be nil.
func NewGate(notifier Notifier, enabled bool, logger *utils.Logger, m *metrics.Registry) *Gate {
	return &Gate{
		notifier: notifier,
		enabled:  enabled,
		logger:   logger,
		metrics:  m,
		notified: utils.NewStringSet(),
	}
}

// OnClassification notifies for NewListing only and reports whether the
// notifier accepted the notification.
func (g *Gate) OnClassification(ctx context.Context, source string, rec models.ListingRecord, c models.Classification) bool {
	if c != models.NewListing || !g.enabled || g.notifier == nil {
		return false
	}
	if !g.notified.Add(rec.Address) {
		return false
	}

	if err := g.notifier.Notify(ctx, rec.SourceRef); err != nil {
		nerr := &models.NotificationError{Ref: rec.SourceRef, Err: err}
		g.logger.Error("[notify] %v", nerr)
		if g.metrics != nil {
			g.metrics.NotifyFailures.WithLabelValues(source).Inc()
		}
		return false
	}
	return true
}
