// Package notify publishes duplicate/collision payloads to an optional
// NATS JetStream side channel, for consumers who don't want to poll the
// card store for event cards.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/cardvault/cardvault/collection"
	"github.com/cardvault/cardvault/event"
)

// streamName is the single JetStream stream every ingestion event is
// published to, subject-partitioned by event type.
const streamName = "CARDVAULT_EVENTS"

// Envelope wraps an event.Payload with publish metadata, mirroring the
// shape a subscriber needs to correlate a notification with a trace.
type Envelope struct {
	Type          string        `json:"type"`
	OccurredAt    time.Time     `json:"occurredAt"`
	CorrelationID string        `json:"correlationId"`
	Payload       event.Payload `json:"payload"`
}

// Publisher publishes ingestion event payloads to JetStream. The zero
// value is not usable; construct one with NewFromURL.
type Publisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// noop satisfies collection.Notifier by doing nothing, used when no NATS
// URL is configured.
type noop struct{}

func (noop) Notify(ctx context.Context, payload event.Payload) error { return nil }

// NewFromURL connects to the NATS server at url and initializes the
// CARDVAULT_EVENTS stream. If url is empty, connection fails, or stream
// initialization fails, it logs a warning and returns a no-op notifier
// instead of an error, so a missing event bus never blocks ingestion.
func NewFromURL(url string) collection.Notifier {
	if url == "" {
		return noop{}
	}

	nc, err := nats.Connect(url)
	if err != nil {
		slog.Warn("notify: NATS connect failed, using noop notifier", "error", err)
		return noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("notify: NATS JetStream context creation failed, using noop notifier", "error", err)
		nc.Close()
		return noop{}
	}

	if err := initStream(js); err != nil {
		slog.Warn("notify: NATS stream initialization failed, using noop notifier", "error", err)
		nc.Close()
		return noop{}
	}

	return &Publisher{nc: nc, js: js}
}

func initStream(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"cardvault.events.*"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create %s stream: %w", streamName, err)
	}
	return nil
}

// Close closes the underlying NATS connection.
func (p *Publisher) Close() error {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// Notify publishes payload to the subject matching its event type. The
// collection package already deduplicates at the digest-equality check
// before ever calling Notify, so this carries no additional dedup window.
func (p *Publisher) Notify(ctx context.Context, payload event.Payload) error {
	subject := fmt.Sprintf("cardvault.events.%s", payload.EventType)

	envelope := Envelope{
		Type:          subject,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		Payload:       payload,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("notify: marshal envelope: %w", err)
	}

	if _, err := p.js.Publish(subject, body); err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	return nil
}
