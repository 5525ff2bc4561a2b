package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Fetch error policies
const (
	// OnFetchErrorFail aborts the whole crawl on the first Link Source failure
	OnFetchErrorFail = "fail"
	// OnFetchErrorSkip marks the failing node parsed with zero links and continues
	OnFetchErrorSkip = "skip"
)

// DefaultMaxLevel is the crawl depth used when none is configured
const DefaultMaxLevel = 3

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL          string `json:"seed_url"`
	MaxLevel         int    `json:"max_level"`
	RequestTimeoutMs int    `json:"request_timeout_ms"`
	UserAgent        string `json:"user_agent"`
	MaxBodyBytes     int    `json:"max_body_bytes"`
	OnFetchError     string `json:"on_fetch_error"`
	DBPath           string `json:"db_path"`
	JSONPath         string `json:"json_path"`
	DOTPath          string `json:"dot_path"`
	MetricsPath      string `json:"metrics_path"`
}

// Default returns a configuration with every default applied and no seed
func Default() *Config {
	cfg := &Config{MaxLevel: DefaultMaxLevel}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads configuration from a JSON file.
// Fields missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// LoadOrDefault loads path if it exists, otherwise returns Default()
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// applyDefaults sets default values for unspecified fields.
// MaxLevel is not touched here since 0 is a valid level.
func applyDefaults(cfg *Config) {
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "source-weaver/1.0"
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 10 * 1024 * 1024
	}
	if cfg.OnFetchError == "" {
		cfg.OnFetchError = OnFetchErrorFail
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "source_tree.db"
	}
	if cfg.JSONPath == "" {
		cfg.JSONPath = "source_tree.json"
	}
	if cfg.DOTPath == "" {
		cfg.DOTPath = "source_tree.dot"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.log"
	}
}

// Validate checks that required fields are present and values are sensible
func (cfg *Config) Validate() error {
	if cfg.SeedURL == "" {
		return fmt.Errorf("seed_url is required")
	}
	if cfg.MaxLevel < 0 {
		return fmt.Errorf("max_level must be >= 0")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be >= 0")
	}
	if cfg.OnFetchError != OnFetchErrorFail && cfg.OnFetchError != OnFetchErrorSkip {
		return fmt.Errorf("on_fetch_error must be %q or %q", OnFetchErrorFail, OnFetchErrorSkip)
	}
	return nil
}
