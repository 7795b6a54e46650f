// Package insertion turns approved pending entries into canonical books.
//
// Engine.Insert either creates a new book with its author links or adds the
// entry's copies to the edition already catalogued under the same ISBN, then
// marks the entry completed. Calls after success are no-ops that report the
// original book id. New books are handed to an Enqueuer for asynchronous
// enrichment.
package insertion
