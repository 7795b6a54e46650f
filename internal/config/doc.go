// Package config loads, normalizes, and validates accession configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOOGLE_BOOKS_API_KEY. The Config value is passed explicitly to every
// component constructor; feature toggles (metadata lookup, enrichment) live
// here rather than in package globals.
package config
