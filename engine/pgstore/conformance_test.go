package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/enginetest"
)

// TestConformance exercises pgstore against a live PostgreSQL instance
// named by CARDVAULT_TEST_PG_DSN; it is skipped otherwise since no
// in-process fake replaces a real server here.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("CARDVAULT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CARDVAULT_TEST_PG_DSN not set")
	}

	enginetest.Run(t, func(t *testing.T) engine.Engine {
		ctx := context.Background()
		s, err := New(ctx, dsn)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		t.Cleanup(s.Close)
		return s
	})
}
