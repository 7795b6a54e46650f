package preflight

import (
	"context"
	"strings"

	"accession/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Metadata.Enabled && cfg.Metadata.CacheEnabled {
		results = append(results, CheckDirectoryAccess("Metadata cache", cfg.Metadata.CacheDir))
	}

	results = append(results, CheckDatabase(ctx, cfg))

	if cfg.Metadata.Enabled {
		results = append(results,
			CheckEndpoint(ctx, "Open Library", cfg.Metadata.OpenLibraryBaseURL),
			CheckEndpoint(ctx, "Google Books", strings.TrimRight(cfg.Metadata.GoogleBooksBaseURL, "/")+"/books/v1/volumes?q=isbn:0"),
		)
	}

	if cfg.Enrichment.Enabled {
		results = append(results, CheckEndpoint(ctx, "Enrichment webhook", cfg.Enrichment.WebhookURL))
	}

	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
