// Package notify delivers new-listing notifications.
package notify

import (
	"context"
	"time"

	"rental-watch/utils"
)

// Notifier delivers one notification identifying a listing by its source reference.
type Notifier interface {
	Notify(ctx context.Context, ref string) error
}

// Event is the payload published for a newly discovered listing.
type Event struct {
	Ref    string    `json:"ref"`
	SentAt time.Time `json:"sent_at"`
}

// LogNotifier only logs. Used when no transport is configured.
type LogNotifier struct {
	logger *utils.Logger
}

func NewLogNotifier(logger *utils.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ref string) error {
	n.logger.Info("[notify] New listing: %s", ref)
	return nil
}
