// Package common provides shared utilities for Navio
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Navio
type Config struct {
	Environment string        `toml:"environment"`
	Engine      EngineConfig  `toml:"engine"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// EngineConfig holds the valuation engine tunables. It is passed explicitly
// into each service rather than read from package-level state.
type EngineConfig struct {
	BaseFiat      string  `toml:"base_fiat"`      // reporting fiat currency ("USD")
	RenewNAV      string  `toml:"renew_nav"`      // NAV cache freshness window, duration string
	MinNAVSize    float64 `toml:"min_nav_size"`   // portfolios below this USD value skip return calc
	DustThreshold float64 `toml:"dust_threshold"` // allocation fraction below which a position is dust
}

// GetRenewNAV parses and returns the NAV cache renewal window.
func (c *EngineConfig) GetRenewNAV() time.Duration {
	d, err := time.ParseDuration(c.RenewNAV)
	if err != nil {
		return 60 * time.Minute
	}
	return d
}

// StorageConfig holds path configuration for the storage areas.
type StorageConfig struct {
	Path string `toml:"path"` // base data directory (trades, nav cache, charts)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	CryptoCompare CryptoCompareConfig `toml:"cryptocompare"`
	AlphaVantage  AlphaVantageConfig  `toml:"alphavantage"`
}

// CryptoCompareConfig holds spot-price API configuration
type CryptoCompareConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *CryptoCompareConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AlphaVantageConfig holds historical-price API configuration
type AlphaVantageConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	CachePath string `toml:"cache_path"` // per-day series memo directory
}

// GetTimeout parses and returns the timeout duration
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Engine: EngineConfig{
			BaseFiat:      "USD",
			RenewNAV:      "60m",
			MinNAVSize:    5,
			DustThreshold: 0.01,
		},
		Storage: StorageConfig{
			Path: "data",
		},
		Clients: ClientsConfig{
			CryptoCompare: CryptoCompareConfig{
				BaseURL:   "https://min-api.cryptocompare.com/data",
				RateLimit: 10,
				Timeout:   "30s",
			},
			AlphaVantage: AlphaVantageConfig{
				BaseURL:   "https://www.alphavantage.co/query",
				RateLimit: 5,
				Timeout:   "30s",
				CachePath: "data/prices",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateBaseFiat(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NAVIO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("NAVIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("NAVIO_DATA_PATH"); path != "" {
		config.Storage.Path = path
		config.Clients.AlphaVantage.CachePath = filepath.Join(path, "prices")
	}

	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		config.Clients.AlphaVantage.APIKey = key
	}

	if v := os.Getenv("NAVIO_RENEW_NAV"); v != "" {
		config.Engine.RenewNAV = v
	}

	if v := os.Getenv("NAVIO_MIN_NAV_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Engine.MinNAVSize = f
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateBaseFiat ensures the reporting fiat is USD, the only base the
// engine supports.
func validateBaseFiat(config *Config) {
	if strings.ToUpper(config.Engine.BaseFiat) != "USD" {
		config.Engine.BaseFiat = "USD"
	}
}
