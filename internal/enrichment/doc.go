// Package enrichment signals downstream work for newly catalogued books.
//
// Dispatcher satisfies insertion.Enqueuer: it accepts book ids without
// blocking and hands them to a small worker pool that calls a Handler,
// normally a WebhookHandler posting {"book_id": N}. Failures never reach the
// insertion that triggered them; they are counted and logged. In the daemon
// the dispatcher runs as a supervised service; short-lived CLI commands call
// Drain before exiting.
package enrichment
