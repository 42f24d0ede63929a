// Package config provides the explicit configuration struct the pipeline
// components are constructed with. There are no process-wide settings: the
// loaded Config is passed down from the entrypoint.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// CacheDir holds the per-source scrape result cache.
	CacheDir string `yaml:"cache_dir"`

	// CacheTTLHours is how long cached scrape results stay valid.
	CacheTTLHours int `yaml:"cache_ttl_hours"`

	// MaxRetries bounds scrape attempts per source per run.
	MaxRetries int `yaml:"max_retries"`

	// HTTPTimeoutSeconds bounds every upstream HTTP request.
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`

	// DataDir holds the JSON event store.
	DataDir string `yaml:"data_dir"`

	// Sources lists the enabled source names. Empty means all.
	Sources []string `yaml:"sources"`

	// ScrapeCron is the cron schedule for daemon mode (e.g. "0 6 * * *").
	ScrapeCron string `yaml:"scrape_cron"`

	// FuzzyThreshold is the 0..1 title similarity above which an event
	// with a new URL is treated as a re-listing of a stored one.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CacheDir:           "~/.local/share/run-events/cache",
		CacheTTLHours:      6,
		MaxRetries:         3,
		HTTPTimeoutSeconds: 30,
		DataDir:            "~/.local/share/run-events",
		ScrapeCron:         "0 6 * * *",
		FuzzyThreshold:     0.90,
	}
}

// Load reads a YAML config from path, falling back to Default when the
// file does not exist. Zero-valued fields are filled from the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.CacheTTLHours <= 0 {
		cfg.CacheTTLHours = Default().CacheTTLHours
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = Default().MaxRetries
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		cfg.HTTPTimeoutSeconds = Default().HTTPTimeoutSeconds
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = Default().FuzzyThreshold
	}
	return cfg, nil
}

// CacheTTL returns the cache validity window as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// HTTPTimeout returns the upstream request timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
