package config

const (
	defaultDataDir                 = "~/.local/share/accession"
	defaultLogDir                  = "~/.local/share/accession/logs"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultBusyTimeoutMS           = 5000
	defaultMaxOpenConns            = 4
	defaultBusyRetries             = 5
	defaultOpenLibraryBaseURL      = "https://openlibrary.org"
	defaultGoogleBooksBaseURL      = "https://www.googleapis.com"
	defaultMetadataTimeoutSeconds  = 10
	defaultMetadataRetryAttempts   = 3
	defaultMetadataCacheTTLHours   = 24 * 7
	defaultBreakerFailureThreshold = 5
	defaultBreakerTimeoutSeconds   = 60
	defaultEnrichmentQueueSize     = 64
	defaultEnrichmentWorkers       = 2
	defaultEnrichmentTimeout       = 15
	defaultEnrichmentRetries       = 3
	defaultRateLimitPerMinute      = 120
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Database: Database{
			BusyTimeoutMS: defaultBusyTimeoutMS,
			MaxOpenConns:  defaultMaxOpenConns,
			BusyRetries:   defaultBusyRetries,
		},
		Metadata: Metadata{
			Enabled:                 true,
			OpenLibraryBaseURL:      defaultOpenLibraryBaseURL,
			GoogleBooksBaseURL:      defaultGoogleBooksBaseURL,
			TimeoutSeconds:          defaultMetadataTimeoutSeconds,
			RetryAttempts:           defaultMetadataRetryAttempts,
			CacheEnabled:            true,
			CacheTTLHours:           defaultMetadataCacheTTLHours,
			BreakerFailureThreshold: defaultBreakerFailureThreshold,
			BreakerTimeoutSeconds:   defaultBreakerTimeoutSeconds,
		},
		Enrichment: Enrichment{
			QueueSize:      defaultEnrichmentQueueSize,
			Workers:        defaultEnrichmentWorkers,
			TimeoutSeconds: defaultEnrichmentTimeout,
			RetryAttempts:  defaultEnrichmentRetries,
		},
		API: API{
			RateLimitPerMinute: defaultRateLimitPerMinute,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
