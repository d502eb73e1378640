// Package main implements the cardvault demo binary: it wires a
// configured storage engine into a collection.Collection and exposes
// liveness, readiness, and metrics endpoints. Ingestion itself is a
// library call (collection.Collection.Add), not an HTTP route — a host
// application embeds the library and calls it directly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardvault/cardvault/collection"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/badgerstore"
	"github.com/cardvault/cardvault/engine/memstore"
	"github.com/cardvault/cardvault/engine/pgstore"
	"github.com/cardvault/cardvault/engine/s3store"
	"github.com/cardvault/cardvault/engine/sqlstore"
	"github.com/cardvault/cardvault/internal/config"
	"github.com/cardvault/cardvault/internal/metrics"
	"github.com/cardvault/cardvault/internal/notify"
	"github.com/cardvault/cardvault/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	tp, err := telemetry.InitTracer("cardvaultd")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.ShutdownTracer(ctx)
	}()

	eng, closeEngine, err := openEngine(cfg)
	if err != nil {
		logger.Error("failed to open storage engine", "engine", cfg.Engine, "error", err)
		os.Exit(1)
	}
	defer closeEngine()

	pub := notify.NewFromURL(cfg.NATSURL)
	if closer, ok := pub.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	col := collection.New(eng,
		collection.WithMetrics(metrics.New()),
		collection.WithTracer(tp.Tracer("cardvault/collection")),
		collection.WithNotifier(pub),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/readyz", handleReadyz(col))
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env, "engine", cfg.Engine)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

// openEngine constructs the storage engine named by cfg.Engine and a
// closer for it. Engines with no meaningful close (memstore, pgstore's
// pool aside) get a no-op closer.
func openEngine(cfg config.Config) (engine.Engine, func(), error) {
	switch cfg.Engine {
	case config.EngineMemory:
		return memstore.New(), func() {}, nil

	case config.EngineSQLite:
		s, err := sqlstore.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.EnginePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := pgstore.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.EngineBadger:
		s, err := badgerstore.New(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.EngineS3:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := s3store.New(ctx, s3store.Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3Endpoint != "",
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports readiness by exercising the configured engine with
// a Count call, the cheapest operation every backend supports.
func handleReadyz(col *collection.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, err := col.Count(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
