package notify

import (
	"context"
	"testing"

	"github.com/cardvault/cardvault/card"
	"github.com/cardvault/cardvault/event"
	"github.com/cardvault/cardvault/hashalgo"
)

// TestNewFromURLEmptyIsNoop asserts that an empty URL yields a notifier
// that never errors, since ingestion must never block on a missing
// event bus.
func TestNewFromURLEmptyIsNoop(t *testing.T) {
	n := NewFromURL("")

	c, err := card.New(card.TextContent("hello"), hashalgo.SHA256, "US")
	if err != nil {
		t.Fatal(err)
	}

	if err := n.Notify(context.Background(), event.Duplicate(c)); err != nil {
		t.Errorf("Notify() on noop = %v, want nil", err)
	}
}

// TestNewFromURLUnreachableFallsBackToNoop asserts that a malformed or
// unreachable NATS URL degrades to the noop notifier rather than making
// construction fail.
func TestNewFromURLUnreachableFallsBackToNoop(t *testing.T) {
	n := NewFromURL("nats://127.0.0.1:1")

	c, err := card.New(card.TextContent("hello"), hashalgo.SHA256, "US")
	if err != nil {
		t.Fatal(err)
	}

	if err := n.Notify(context.Background(), event.Duplicate(c)); err != nil {
		t.Errorf("Notify() on fallback noop = %v, want nil", err)
	}
}
