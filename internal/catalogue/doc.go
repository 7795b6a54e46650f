// Package catalogue owns the SQLite-backed catalogue store: pending entries,
// their append-only audit trail, and the canonical books, authors and
// publishers that approved entries become.
//
// Reads go straight to the connection pool. Mutations run through
// Store.WithTx, whose transactions take the database write lock up front so
// a read-check-write sequence on one entry cannot interleave with another.
package catalogue
