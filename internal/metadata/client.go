package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"accession/internal/catalogue"
	"accession/internal/config"
	"accession/internal/isbn"
	"accession/internal/logging"
	"accession/internal/metrics"
	"accession/internal/services"
)

// Client queries Open Library first and Google Books as a fallback, then
// merges the two answers with the intake values.
type Client struct {
	primary  guardedProvider
	fallback guardedProvider
	cache    *Cache
	logger   *slog.Logger
}

type guardedProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker[catalogue.Document]
}

// BreakerSettings configures the per-provider circuit breakers.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// NewClient wires the two providers with circuit breakers. cache may be nil.
func NewClient(primary, fallback Provider, breaker BreakerSettings, cache *Cache, logger *slog.Logger) *Client {
	logger = logging.NewComponentLogger(logger, "metadata")
	return &Client{
		primary:  guard(primary, breaker, logger),
		fallback: guard(fallback, breaker, logger),
		cache:    cache,
		logger:   logger,
	}
}

// NewFromConfig builds a Client from configuration, opening the lookup cache
// when enabled. Callers must Close the client.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("metadata: config is required")
	}
	httpClient := &http.Client{Timeout: cfg.MetadataTimeout()}
	primary := NewOpenLibrary(cfg.Metadata.OpenLibraryBaseURL, httpClient, cfg.Metadata.RetryAttempts)
	fallback := NewGoogleBooks(cfg.Metadata.GoogleBooksBaseURL, cfg.Metadata.GoogleBooksAPIKey, httpClient, cfg.Metadata.RetryAttempts)

	var cache *Cache
	if cfg.Metadata.CacheEnabled {
		var err error
		cache, err = OpenCache(cfg.Metadata.CacheDir, cfg.CacheTTL())
		if err != nil {
			return nil, err
		}
	}
	breaker := BreakerSettings{
		FailureThreshold: uint32(cfg.Metadata.BreakerFailureThreshold),
		OpenTimeout:      time.Duration(cfg.Metadata.BreakerTimeoutSeconds) * time.Second,
	}
	return NewClient(primary, fallback, breaker, cache, logger), nil
}

func guard(provider Provider, settings BreakerSettings, logger *slog.Logger) guardedProvider {
	if provider == nil {
		return guardedProvider{}
	}
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	breaker := gobreaker.NewCircuitBreaker[catalogue.Document](gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("metadata provider breaker state changed",
				logging.String("provider", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldEventType, "breaker_state_change"),
			)
		},
	})
	return guardedProvider{provider: provider, breaker: breaker}
}

func (g guardedProvider) lookup(ctx context.Context, q Query) (catalogue.Document, error) {
	if g.provider == nil {
		return nil, nil
	}
	doc, err := g.breaker.Execute(func() (catalogue.Document, error) {
		return g.provider.Lookup(ctx, q)
	})
	switch {
	case err != nil:
		metrics.RecordMetadataLookup(g.provider.Name(), "error")
	case doc == nil:
		metrics.RecordMetadataLookup(g.provider.Name(), "miss")
	default:
		metrics.RecordMetadataLookup(g.provider.Name(), "hit")
	}
	return doc, err
}

// Close releases the lookup cache.
func (c *Client) Close() error {
	if c == nil || c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

// Fetch implements Fetcher. A provider error only fails the fetch when no
// provider produced anything.
func (c *Client) Fetch(ctx context.Context, q Query) (catalogue.Document, error) {
	if q.empty() {
		return nil, nil
	}
	if c.cache != nil {
		if doc, ok := c.cache.Get(q); ok {
			metrics.RecordMetadataLookup("cache", "cached")
			return doc, nil
		}
	}

	var (
		primary, fallback catalogue.Document
		errs              []error
	)
	if q.NormalizedISBN() != "" {
		doc, err := c.primary.lookup(ctx, q)
		if err != nil {
			c.logger.Warn("primary metadata lookup failed",
				logging.String("isbn", q.NormalizedISBN()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "metadata_provider_failed"),
			)
			errs = append(errs, err)
		}
		primary = doc
	}
	doc, err := c.fallback.lookup(ctx, q)
	if err != nil {
		c.logger.Warn("fallback metadata lookup failed",
			logging.String("title", q.Title),
			logging.Error(err),
			logging.String(logging.FieldEventType, "metadata_provider_failed"),
		)
		errs = append(errs, err)
	}
	fallback = doc

	merged := Merge(primary, fallback, q)
	if merged == nil && len(errs) > 0 {
		return nil, services.Wrap(services.ErrExternal, "metadata", "fetch", "all providers failed", errors.Join(errs...))
	}
	if merged != nil && c.cache != nil {
		if err := c.cache.Put(q, merged); err != nil {
			c.logger.Debug("metadata cache write failed", logging.Error(err))
		}
	}
	return merged, nil
}

// Merge combines provider answers. Primary values win, fallback fills gaps,
// and the intake query fills what is still missing. Both providers empty
// yields nil.
func Merge(primary, fallback catalogue.Document, q Query) catalogue.Document {
	if primary == nil && fallback == nil {
		return nil
	}
	merged := catalogue.Document{}
	var sources []string
	for _, doc := range []catalogue.Document{primary, fallback} {
		if doc == nil {
			continue
		}
		if source := doc.String(catalogue.KeySource); source != "" {
			sources = append(sources, source)
		}
		for key, value := range doc {
			if key == catalogue.KeySource || merged.Has(key) || !doc.Has(key) {
				continue
			}
			merged[key] = value
		}
	}

	if !merged.Has(catalogue.KeyTitle) && strings.TrimSpace(q.Title) != "" {
		merged[catalogue.KeyTitle] = strings.TrimSpace(q.Title)
	}
	if !merged.Has(catalogue.KeyAuthors) && len(q.Authors) > 0 {
		merged[catalogue.KeyAuthors] = append([]string(nil), q.Authors...)
	}
	if code := q.NormalizedISBN(); code != "" {
		switch isbn.Classify(code) {
		case isbn.ISBN10:
			if !merged.Has(catalogue.KeyISBN10) {
				merged[catalogue.KeyISBN10] = code
			}
		case isbn.ISBN13:
			if !merged.Has(catalogue.KeyISBN13) {
				merged[catalogue.KeyISBN13] = code
			}
		}
	}
	merged[catalogue.KeySource] = strings.Join(sources, "+")
	return merged
}

// String describes the configured providers for logs.
func (c *Client) String() string {
	names := make([]string, 0, 2)
	for _, g := range []guardedProvider{c.primary, c.fallback} {
		if g.provider != nil {
			names = append(names, g.provider.Name())
		}
	}
	return fmt.Sprintf("metadata client (%s)", strings.Join(names, ", "))
}
