package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Database contains SQLite connection tuning.
type Database struct {
	BusyTimeoutMS int `toml:"busy_timeout_ms"`
	MaxOpenConns  int `toml:"max_open_conns"`
	// BusyRetries bounds how many times a transaction is re-run after
	// SQLITE_BUSY escapes the busy timeout.
	BusyRetries int `toml:"busy_retries"`
}

// Metadata configures the bibliographic lookup performed after intake.
type Metadata struct {
	Enabled                 bool   `toml:"enabled"`
	OpenLibraryBaseURL      string `toml:"openlibrary_base_url"`
	GoogleBooksBaseURL      string `toml:"googlebooks_base_url"`
	GoogleBooksAPIKey       string `toml:"googlebooks_api_key"`
	TimeoutSeconds          int    `toml:"timeout_seconds"`
	RetryAttempts           int    `toml:"retry_attempts"`
	CacheEnabled            bool   `toml:"cache_enabled"`
	CacheDir                string `toml:"cache_dir"`
	CacheTTLHours           int    `toml:"cache_ttl_hours"`
	BreakerFailureThreshold int    `toml:"breaker_failure_threshold"`
	BreakerTimeoutSeconds   int    `toml:"breaker_timeout_seconds"`
}

// Enrichment configures the asynchronous job signalled after a new book is
// inserted.
type Enrichment struct {
	Enabled        bool   `toml:"enabled"`
	WebhookURL     string `toml:"webhook_url"`
	QueueSize      int    `toml:"queue_size"`
	Workers        int    `toml:"workers"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// API configures the HTTP adapter served by the daemon.
type API struct {
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
	// Token, when set, is required as a bearer token on /api/v1 routes.
	Token string `toml:"token"`
	// CORSOrigins lists browser origins allowed to call /api/v1. Empty
	// disables CORS headers.
	CORSOrigins []string `toml:"cors_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for accession.
//
// Configuration sections by subsystem:
//   - Paths: data, log directories and API bind address
//   - Database: SQLite busy handling and pool size
//   - Metadata: Open Library / Google Books lookup, cache, circuit breaker
//   - Enrichment: post-insertion webhook dispatcher
//   - API: HTTP rate limiting and bearer token
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Database   Database   `toml:"database"`
	Metadata   Metadata   `toml:"metadata"`
	Enrichment Enrichment `toml:"enrichment"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/accession/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("accession.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log and cache directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Metadata.CacheEnabled {
		dirs = append(dirs, c.Metadata.CacheDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite catalogue database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalogue.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "accession.lock")
}

// BusyTimeout returns the SQLite busy timeout as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeoutMS) * time.Millisecond
}

// MetadataTimeout returns the per-request timeout for metadata providers.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long a cached metadata lookup stays valid.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Metadata.CacheTTLHours) * time.Hour
}

// EnrichmentTimeout returns the per-request timeout for the enrichment webhook.
func (c *Config) EnrichmentTimeout() time.Duration {
	return time.Duration(c.Enrichment.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
