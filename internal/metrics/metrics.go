// Package metrics exposes the prometheus collectors for collection and
// engine operations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/histogram the collection and engine
// packages record against.
type Metrics struct {
	// CollectionOpTotal counts Collection method calls by op and outcome.
	// Only Add is recorded (op "add", outcome
	// insert|duplicate|collision|error).
	CollectionOpTotal *prometheus.CounterVec

	// CollectionOpDuration times Collection method calls.
	CollectionOpDuration *prometheus.HistogramVec

	// EngineOpTotal counts Engine calls made on the collection's behalf;
	// only engine Add calls are recorded (outcome ok|conflict|error).
	EngineOpTotal *prometheus.CounterVec

	// EngineOpDuration times Engine calls.
	EngineOpDuration *prometheus.HistogramVec
}

var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// New creates the Metrics instance, reusing the process-wide singleton
// if one was already built.
func New() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		CollectionOpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardvault_collection_operations_total",
			Help: "Total number of Collection operations by op and outcome.",
		}, []string{"op", "outcome"}),

		CollectionOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardvault_collection_operation_duration_seconds",
			Help:    "Collection operation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),

		EngineOpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardvault_engine_operations_total",
			Help: "Total number of Engine operations by op and outcome.",
		}, []string{"op", "outcome"}),

		EngineOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardvault_engine_operation_duration_seconds",
			Help:    "Engine operation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
	}

	registerMetrics(m)
	globalMetrics = m
	return m
}

func registerMetrics(m *Metrics) {
	registerOrGet(m.CollectionOpTotal)
	registerOrGet(m.CollectionOpDuration)
	registerOrGet(m.EngineOpTotal)
	registerOrGet(m.EngineOpDuration)
}

// registerOrGet tries to register a metric, returning the already
// registered collector instead of erroring if one exists.
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
