package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitTracerSetsProvider(t *testing.T) {
	tp, err := InitTracer("cardvault-test")
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	if tp == nil {
		t.Fatal("InitTracer() returned nil provider")
	}
	if TracerProvider != tp {
		t.Error("InitTracer() did not set the package-level TracerProvider")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ShutdownTracer(ctx)
}
