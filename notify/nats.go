package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"rental-watch/utils"
)

// NATSNotifier publishes an Event per new listing on a NATS subject.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	logger  *utils.Logger
}

// NewNATSNotifier connects to url, retrying with retry.
func NewNATSNotifier(url, subject string, retry *utils.RetryConfig, logger *utils.Logger) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name("rental-watch"),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("[notify] NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("[notify] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	var nc *nats.Conn
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	err := retry.Do("nats-connect", func() error {
		var err error
		nc, err = nats.Connect(url, opts...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	logger.Info("[notify] Connected to NATS at %s", nc.ConnectedUrl())

	return &NATSNotifier{nc: nc, subject: subject, logger: logger}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, ref string) error {
	data, err := json.Marshal(Event{Ref: ref, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", n.subject, err)
	}
	// Flush so a successful return means the server has the message.
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats: flush %s: %w", n.subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATSNotifier) Close() {
	if n.nc != nil && !n.nc.IsClosed() {
		if err := n.nc.Drain(); err != nil {
			n.logger.Error("[notify] Error draining NATS connection: %v", err)
		}
		n.nc.Close()
	}
}
