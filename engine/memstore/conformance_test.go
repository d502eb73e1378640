package memstore

import (
	"testing"

	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/enginetest"
)

func TestConformance(t *testing.T) {
	enginetest.Run(t, func(t *testing.T) engine.Engine {
		return New()
	})
}
