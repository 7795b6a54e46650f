// Command accession is the librarian-facing CLI for the catalogue intake
// workflow.
//
// Every subcommand except serve opens the catalogue directly, performs one
// workflow or insertion operation, and closes it again. Closing drains any
// enrichment jobs queued by an insertion before the process exits. The serve
// subcommand runs the long-lived daemon that exposes the same operations over
// HTTP.
//
// Read commands accept --json to emit the API payloads instead of tables.
package main
