// Package metrics registers the Prometheus collectors for the catalogue
// workflow, insertion engine, metadata providers and enrichment dispatcher.
// Collectors live in the default registry and are served by the daemon at
// /metrics.
package metrics
