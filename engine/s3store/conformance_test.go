package s3store

import (
	"context"
	"os"
	"testing"

	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/enginetest"
)

// TestConformance exercises s3store against an S3-compatible endpoint
// named by CARDVAULT_TEST_S3_ENDPOINT / _BUCKET; it is skipped
// otherwise since no in-process fake replaces a real object store here.
func TestConformance(t *testing.T) {
	endpoint := os.Getenv("CARDVAULT_TEST_S3_ENDPOINT")
	bucket := os.Getenv("CARDVAULT_TEST_S3_BUCKET")
	if endpoint == "" || bucket == "" {
		t.Skip("CARDVAULT_TEST_S3_ENDPOINT/CARDVAULT_TEST_S3_BUCKET not set")
	}

	enginetest.Run(t, func(t *testing.T) engine.Engine {
		ctx := context.Background()
		s, err := New(ctx, Config{
			Endpoint:     endpoint,
			Region:       os.Getenv("CARDVAULT_TEST_S3_REGION"),
			Bucket:       bucket,
			AccessKey:    os.Getenv("CARDVAULT_TEST_S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("CARDVAULT_TEST_S3_SECRET_KEY"),
			UsePathStyle: true,
		})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		t.Cleanup(func() {
			_ = s.Clear(context.Background())
		})
		return s
	})
}
