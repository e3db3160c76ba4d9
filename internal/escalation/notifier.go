// Package escalation hands high and critical severity events to the
// external campaign/alert collaborator over the message bus. Delivery is
// best effort: ingestion correctness never depends on escalation succeeding.
package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// Notifier is the escalation collaborator contract.
type Notifier interface {
	Notify(ctx context.Context, orgID string, events []models.PersistedEvent) error
	Close()
}

// Payload is the message published for one batch's escalated events.
type Payload struct {
	OrganizationID string                  `json:"organization_id"`
	Count          int                     `json:"count"`
	Events         []models.PersistedEvent `json:"events"`
	PublishedAt    time.Time               `json:"published_at"`
}

// Config holds NATS connection settings for the notifier.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "wafingest-escalation",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSNotifier publishes escalation payloads to the message bus.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to NATS with the given configuration.
func NewNATSNotifier(cfg Config) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSNotifier{
		conn:    conn,
		subject: SubjectEventsEscalated,
	}, nil
}

// Notify publishes the escalated events. Transient publish failures are
// retried with exponential backoff for a few seconds; the caller treats any
// remaining error as log-only.
func (n *NATSNotifier) Notify(ctx context.Context, orgID string, events []models.PersistedEvent) error {
	if len(events) == 0 {
		return nil
	}

	data, err := json.Marshal(Payload{
		OrganizationID: orgID,
		Count:          len(events),
		Events:         events,
		PublishedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal escalation payload: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	publish := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return n.conn.Publish(n.subject, data)
	}

	if err := backoff.Retry(publish, policy); err != nil {
		return fmt.Errorf("publish escalation: %w", err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// NoopNotifier discards escalations. Used when no message bus is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, orgID string, events []models.PersistedEvent) error {
	return nil
}

func (NoopNotifier) Close() {}
