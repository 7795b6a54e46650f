package testsupport

import (
	"path/filepath"
	"testing"

	"accession/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Network-facing features are disabled unless an option turns them on.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Metadata.Enabled = false
	cfgVal.Metadata.CacheEnabled = false
	cfgVal.Metadata.CacheDir = filepath.Join(base, "data", "metadata-cache")
	cfgVal.Metadata.RetryAttempts = 1
	cfgVal.Enrichment.Enabled = false
	cfgVal.Enrichment.RetryAttempts = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMetadataServer enables metadata lookups against a single test server
// standing in for both providers.
func WithMetadataServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.Enabled = true
		b.cfg.Metadata.OpenLibraryBaseURL = baseURL
		b.cfg.Metadata.GoogleBooksBaseURL = baseURL
	}
}

// WithMetadataCache turns on the on-disk metadata cache.
func WithMetadataCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.CacheEnabled = true
	}
}

// WithEnrichmentWebhook enables the enrichment dispatcher against url.
func WithEnrichmentWebhook(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.Enabled = true
		b.cfg.Enrichment.WebhookURL = url
	}
}

// WithBusyRetries overrides how often a busy write transaction is retried.
func WithBusyRetries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Database.BusyRetries = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
