package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowTransitions counts pending entry status changes by target status.
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accession_workflow_transitions_total",
			Help: "Total pending entry status transitions",
		},
		[]string{"to"},
	)

	// Insertions counts successful insertion outcomes.
	Insertions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accession_insertions_total",
			Help: "Total insertion attempts that succeeded, by action",
		},
		[]string{"action"}, // "inserted", "copies_added", "already_completed"
	)

	InsertionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accession_insertion_failures_total",
			Help: "Total insertion attempts that failed, by error kind",
		},
		[]string{"kind"},
	)

	InsertionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "accession_insertion_duration_seconds",
			Help:    "Duration of insertion transactions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	MetadataLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accession_metadata_lookups_total",
			Help: "Total metadata provider lookups by provider and outcome",
		},
		[]string{"provider", "outcome"}, // outcome: "hit", "miss", "error", "cached"
	)

	EnrichmentJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accession_enrichment_jobs_total",
			Help: "Total enrichment jobs by outcome",
		},
		[]string{"outcome"}, // "delivered", "failed", "dropped"
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accession_http_requests_total",
			Help: "Total API requests by route pattern, method and status code",
		},
		[]string{"route", "method", "status"},
	)
)

// RecordTransition counts a status change.
func RecordTransition(to string) {
	WorkflowTransitions.WithLabelValues(to).Inc()
}

// RecordInsertion counts an insertion outcome and its duration.
func RecordInsertion(action string, seconds float64) {
	Insertions.WithLabelValues(action).Inc()
	InsertionDuration.Observe(seconds)
}

// RecordInsertionFailure counts a failed insertion by error kind.
func RecordInsertionFailure(kind string, seconds float64) {
	InsertionFailures.WithLabelValues(kind).Inc()
	InsertionDuration.Observe(seconds)
}

// RecordMetadataLookup counts one provider call.
func RecordMetadataLookup(provider, outcome string) {
	MetadataLookups.WithLabelValues(provider, outcome).Inc()
}

// RecordEnrichmentJob counts an enrichment job outcome.
func RecordEnrichmentJob(outcome string) {
	EnrichmentJobs.WithLabelValues(outcome).Inc()
}
