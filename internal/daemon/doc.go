// Package daemon coordinates the long-running accession process.
//
// It serves the catalogue HTTP API (chi, under /api/v1, plus /metrics) and the
// post-insertion enrichment dispatcher as services of a single suture
// supervisor, with flock-based locking to prevent multiple instances over
// the same data directory.
//
// Handlers are thin: they decode the request, call api.CatalogueService and
// map the error kind to a status code (validation and invalid state 400, not
// found 404, conflict 409, storage 500). Error bodies use the
// {"error": {"code", "message"}} envelope.
package daemon
