package badgerstore

import (
	"testing"

	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/enginetest"
)

func TestConformance(t *testing.T) {
	enginetest.Run(t, func(t *testing.T) engine.Engine {
		dir := t.TempDir()
		s, err := New(dir)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
