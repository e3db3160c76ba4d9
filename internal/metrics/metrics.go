package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch-level metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wafingest_batches_total",
			Help: "Total number of batches processed",
		},
		[]string{"outcome"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wafingest_batch_duration_seconds",
			Help:    "Duration of one batch run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Event-level metrics
	EventsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_events_received_total",
			Help: "Total number of raw records received",
		},
	)

	EventsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_events_parsed_total",
			Help: "Total number of records normalized successfully",
		},
	)

	EventsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_events_saved_total",
			Help: "Total number of newly persisted events",
		},
	)

	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_duplicates_skipped_total",
			Help: "Total number of re-delivered events skipped by dedup",
		},
	)

	RecordErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_record_errors_total",
			Help: "Total number of record-level failures (parse or write)",
		},
	)

	// Attribution metrics
	AttributionResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wafingest_attribution_resolved_total",
			Help: "Batches attributed, by winning strategy",
		},
		[]string{"strategy"},
	)

	AttributionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wafingest_attribution_failures_total",
			Help: "Batches that failed closed, by reason",
		},
		[]string{"reason"},
	)

	AttributionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_attribution_cache_hits_total",
			Help: "Attribution lookups served from the TTL cache",
		},
	)

	// Escalation metrics
	EscalationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_escalations_published_total",
			Help: "High and critical severity batches handed to the campaign detector",
		},
	)

	EscalationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wafingest_escalation_errors_total",
			Help: "Escalation publish failures (never fail the batch)",
		},
	)
)
