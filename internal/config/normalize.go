package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatabase()
	if err := c.normalizeMetadata(); err != nil {
		return err
	}
	c.normalizeEnrichment()
	if c.API.RateLimitPerMinute < 0 {
		c.API.RateLimitPerMinute = 0
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("ACCESSION_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	origins := c.API.CORSOrigins[:0]
	for _, origin := range c.API.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.CORSOrigins = origins
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	if c.Database.BusyTimeoutMS <= 0 {
		c.Database.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if c.Database.BusyRetries < 0 {
		c.Database.BusyRetries = 0
	}
}

func (c *Config) normalizeMetadata() error {
	c.Metadata.OpenLibraryBaseURL = strings.TrimRight(strings.TrimSpace(c.Metadata.OpenLibraryBaseURL), "/")
	if c.Metadata.OpenLibraryBaseURL == "" {
		c.Metadata.OpenLibraryBaseURL = defaultOpenLibraryBaseURL
	}
	c.Metadata.GoogleBooksBaseURL = strings.TrimRight(strings.TrimSpace(c.Metadata.GoogleBooksBaseURL), "/")
	if c.Metadata.GoogleBooksBaseURL == "" {
		c.Metadata.GoogleBooksBaseURL = defaultGoogleBooksBaseURL
	}
	c.Metadata.GoogleBooksAPIKey = strings.TrimSpace(c.Metadata.GoogleBooksAPIKey)
	if c.Metadata.GoogleBooksAPIKey == "" {
		if value, ok := os.LookupEnv("GOOGLE_BOOKS_API_KEY"); ok {
			c.Metadata.GoogleBooksAPIKey = strings.TrimSpace(value)
		}
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		c.Metadata.TimeoutSeconds = defaultMetadataTimeoutSeconds
	}
	if c.Metadata.RetryAttempts <= 0 {
		c.Metadata.RetryAttempts = 1
	}
	if c.Metadata.CacheTTLHours <= 0 {
		c.Metadata.CacheTTLHours = defaultMetadataCacheTTLHours
	}
	if strings.TrimSpace(c.Metadata.CacheDir) == "" {
		c.Metadata.CacheDir = filepath.Join(c.Paths.DataDir, "metadata-cache")
	}
	var err error
	if c.Metadata.CacheDir, err = expandPath(c.Metadata.CacheDir); err != nil {
		return fmt.Errorf("metadata.cache_dir: %w", err)
	}
	if c.Metadata.BreakerFailureThreshold <= 0 {
		c.Metadata.BreakerFailureThreshold = defaultBreakerFailureThreshold
	}
	if c.Metadata.BreakerTimeoutSeconds <= 0 {
		c.Metadata.BreakerTimeoutSeconds = defaultBreakerTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.WebhookURL = strings.TrimSpace(c.Enrichment.WebhookURL)
	if c.Enrichment.WebhookURL == "" {
		if value, ok := os.LookupEnv("ACCESSION_ENRICHMENT_WEBHOOK"); ok {
			c.Enrichment.WebhookURL = strings.TrimSpace(value)
		}
	}
	if c.Enrichment.QueueSize <= 0 {
		c.Enrichment.QueueSize = defaultEnrichmentQueueSize
	}
	if c.Enrichment.Workers <= 0 {
		c.Enrichment.Workers = defaultEnrichmentWorkers
	}
	if c.Enrichment.TimeoutSeconds <= 0 {
		c.Enrichment.TimeoutSeconds = defaultEnrichmentTimeout
	}
	if c.Enrichment.RetryAttempts <= 0 {
		c.Enrichment.RetryAttempts = 1
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
