package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMetadata() error {
	if !c.Metadata.Enabled {
		return nil
	}
	for key, value := range map[string]string{
		"metadata.openlibrary_base_url": c.Metadata.OpenLibraryBaseURL,
		"metadata.googlebooks_base_url": c.Metadata.GoogleBooksBaseURL,
	} {
		if err := validateURL(key, value); err != nil {
			return err
		}
	}
	return ensurePositiveMap(map[string]int{
		"metadata.timeout_seconds":           c.Metadata.TimeoutSeconds,
		"metadata.cache_ttl_hours":           c.Metadata.CacheTTLHours,
		"metadata.breaker_failure_threshold": c.Metadata.BreakerFailureThreshold,
		"metadata.breaker_timeout_seconds":   c.Metadata.BreakerTimeoutSeconds,
	})
}

func (c *Config) validateEnrichment() error {
	if !c.Enrichment.Enabled {
		return nil
	}
	if c.Enrichment.WebhookURL == "" {
		return errors.New("enrichment.webhook_url must be set when enrichment.enabled is true (or set ACCESSION_ENRICHMENT_WEBHOOK)")
	}
	return validateURL("enrichment.webhook_url", c.Enrichment.WebhookURL)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
