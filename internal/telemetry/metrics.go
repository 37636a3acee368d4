package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EventsEmitted counts envelopes offered to the event bus by type
	EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "droneops",
			Name:      "events_emitted_total",
			Help:      "Total number of events emitted to the stream bus",
		},
		[]string{"type"},
	)

	// EventsDropped counts envelopes lost to full subscriber queues
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "droneops",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped from slow subscriber queues",
		},
		[]string{"type"},
	)

	// DetectionsPersisted counts detections written to the store by source
	DetectionsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "droneops",
			Name:      "detections_persisted_total",
			Help:      "Total number of drone detections persisted",
		},
		[]string{"source"},
	)

	// IngestFailures counts per-detection persistence failures that were
	// skipped without poisoning the rest of the event
	IngestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "droneops",
			Name:      "ingest_failures_total",
			Help:      "Total number of detections skipped due to persistence failures",
		},
		[]string{"source"},
	)

	// ActionsExecuted counts executed action requests by action type
	ActionsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "droneops",
			Name:      "actions_executed_total",
			Help:      "Total number of executed action requests",
		},
		[]string{"action_type"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(EventsEmitted)
		prometheus.DefaultRegisterer.Register(EventsDropped)
		prometheus.DefaultRegisterer.Register(DetectionsPersisted)
		prometheus.DefaultRegisterer.Register(IngestFailures)
		prometheus.DefaultRegisterer.Register(ActionsExecuted)
	})
}
