package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment override, e.g. ASTROKML_WORKERS.
const EnvPrefix = "ASTROKML"

// MaxWorkers bounds concurrent placemark fetches against the catalog.
const MaxWorkers = 16

// Config holds scraper configuration.
type Config struct {
	SearchURL         string        `envconfig:"SEARCH_URL"`
	DetailURL         string        `envconfig:"DETAIL_URL"`
	MaxPages          int           `envconfig:"MAX_PAGES"` // 0 processes every page
	Workers           int           `envconfig:"WORKERS"`
	RequestsPerSecond float64       `envconfig:"RPS"`
	Delay             time.Duration `envconfig:"DELAY"`
	Timeout           time.Duration `envconfig:"TIMEOUT"`
	MaxRetries        int           `envconfig:"MAX_RETRIES"`
	RetryBackoff      time.Duration `envconfig:"RETRY_BACKOFF"`
	RetryBackoffMax   time.Duration `envconfig:"RETRY_BACKOFF_MAX"`
	CacheSize         int           `envconfig:"CACHE_SIZE"`
	OutputFile        string        `envconfig:"OUTPUT"`
	OutputFormat      string        `envconfig:"FORMAT"` // kml, json, csv, or dual
	UserAgent         string        `envconfig:"USER_AGENT"`
	LogLevel          string        `envconfig:"LOG_LEVEL"`
	Verbose           bool          `envconfig:"VERBOSE"`
	MetricsAddr       string        `envconfig:"METRICS_ADDR"`
}

// DefaultConfig returns conservative defaults for the catalog.
func DefaultConfig() *Config {
	return &Config{
		SearchURL:         "http://eol.jsc.nasa.gov/sseop/technical.htm",
		DetailURL:         "http://eol.jsc.nasa.gov/scripts/sseop/PhotoKML.pl",
		MaxPages:          0,
		Workers:           4,
		RequestsPerSecond: 4,
		Delay:             0,
		Timeout:           30 * time.Second,
		MaxRetries:        2,
		RetryBackoff:      500 * time.Millisecond,
		RetryBackoffMax:   5 * time.Second,
		CacheSize:         1024,
		OutputFile:        "output/photos.kml",
		OutputFormat:      "kml",
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		LogLevel:          "info",
		Verbose:           false,
		MetricsAddr:       "",
	}
}

// Load returns the defaults overlaid with ASTROKML_* environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("search URL", c.SearchURL); err != nil {
		return err
	}
	if err := validateURL("detail URL", c.DetailURL); err != nil {
		return err
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.Workers <= 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d", MaxWorkers)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "kml", "json", "csv", "dual":
	default:
		return fmt.Errorf("output format must be kml, json, csv, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn, or error")
	}

	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
