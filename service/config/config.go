package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrMissingAPIKey is reported when the transaction-history provider secret is absent.
// The server still starts so that every scan can answer with a descriptive 500.
var ErrMissingAPIKey = errors.New("HELIUS_API_KEY is not set in the server environment")

const (
	// DefaultTxLimit is the page size requested from the transaction-history provider.
	DefaultTxLimit = 80

	// MaxEnrichTokens bounds how many discovered mints are looked up per scan.
	MaxEnrichTokens = 6
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Transaction-history provider (Helius enhanced transactions API)
	HeliusAPIKey  string
	HeliusBaseURL string
	TxLimit       int
	FetchTimeout  time.Duration

	// Market-data provider (DexScreener)
	DexScreenerBaseURL string
	EnrichTimeout      time.Duration
	EnrichMaxTokens    int
	EnrichConcurrency  int

	// NATS configuration; publishing is disabled when empty.
	NATSURL string

	// Optional YAML file overriding the default scoring rules.
	ScoringRulesFile string
}

// Load reads configuration from environment variables and validates all fields.
// A missing HELIUS_API_KEY is not a load error; see APIKeyError.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Helius configuration
	cfg.HeliusAPIKey = os.Getenv("HELIUS_API_KEY")
	cfg.HeliusBaseURL = getEnvOrDefault("HELIUS_BASE_URL", "https://api.helius.xyz/v0")

	txLimit, err := parseInt("HELIUS_TX_LIMIT", DefaultTxLimit)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TxLimit = txLimit
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.FetchTimeout = fetchTimeout
	}

	// DexScreener configuration
	cfg.DexScreenerBaseURL = getEnvOrDefault("DEXSCREENER_BASE_URL", "https://api.dexscreener.com/latest/dex")

	enrichTimeout, err := parseDuration("ENRICH_TIMEOUT", "5s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.EnrichTimeout = enrichTimeout
	}

	maxTokens, err := parseInt("ENRICH_MAX_TOKENS", MaxEnrichTokens)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.EnrichMaxTokens = maxTokens
	}

	concurrency, err := parseInt("ENRICH_CONCURRENCY", MaxEnrichTokens)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.EnrichConcurrency = concurrency
	}

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.ScoringRulesFile = os.Getenv("SCORING_RULES_FILE")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.HeliusBaseURL == "" {
		errs = append(errs, fmt.Errorf("HeliusBaseURL is required"))
	}

	if c.DexScreenerBaseURL == "" {
		errs = append(errs, fmt.Errorf("DexScreenerBaseURL is required"))
	}

	if c.TxLimit < 1 || c.TxLimit > 100 {
		errs = append(errs, fmt.Errorf("TxLimit must be between 1 and 100, got %d", c.TxLimit))
	}

	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FetchTimeout must be positive"))
	}

	if c.EnrichTimeout <= 0 {
		errs = append(errs, fmt.Errorf("EnrichTimeout must be positive"))
	}

	if c.EnrichMaxTokens < 0 || c.EnrichMaxTokens > MaxEnrichTokens {
		errs = append(errs, fmt.Errorf("EnrichMaxTokens must be between 0 and %d, got %d", MaxEnrichTokens, c.EnrichMaxTokens))
	}

	if c.EnrichConcurrency < 1 || c.EnrichConcurrency > MaxEnrichTokens {
		errs = append(errs, fmt.Errorf("EnrichConcurrency must be between 1 and %d, got %d", MaxEnrichTokens, c.EnrichConcurrency))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// APIKeyError returns ErrMissingAPIKey when the Helius secret is absent.
func (c *Config) APIKeyError() error {
	if c.HeliusAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
