// Package metadata fetches bibliographic metadata for intake.
//
// Open Library is consulted first when an ISBN is known and Google Books
// fills the gaps or answers title searches. Each provider sits behind its
// own circuit breaker and retries transient HTTP failures. Merged results
// for ISBN queries can be cached on disk in badger.
package metadata
