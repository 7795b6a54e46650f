// Package api defines wire-format types and the CatalogueService facade
// shared by the CLI and the HTTP API.
//
// # Key Types
//
// Entry: transport representation of a pending entry, including the fetched
// metadata (raw_metadata) and the finalized output document.
//
// AuditEntry, InsertResult, StatsResponse: read models for audit trails,
// insertion outcomes and per-status counts.
//
// ErrorBody: the {"error": {"code", "message"}} envelope. Code is the
// services.Kind of the underlying error.
//
// # Wiring
//
// OpenRuntime builds the store, metadata client, enrichment dispatcher,
// workflow manager and insertion engine from a config.Config and exposes
// them through Runtime.Service. Runtime.Close drains queued enrichment jobs
// before releasing the database.
//
// # Design Notes
//
// DTOs use snake_case JSON tags matching the catalogue's document keys.
// Statuses are exposed as lowercase strings. Timestamps use RFC3339 with
// microseconds in UTC.
package api
