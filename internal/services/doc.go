// Package services defines shared utilities consumed by the catalogue
// workflow, the insertion engine and the outer CLI/HTTP layers.
//
// Key responsibilities:
//   - Context helpers that stamp entry IDs, actors, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation, not found, invalid state, storage, external)
//     without string matching.
//
// Use these helpers when wiring new operations so error reporting and
// observability stay uniform across components.
package services
