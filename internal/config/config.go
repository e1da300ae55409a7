// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the database and snapshots (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// PriceFeedURL is the websocket endpoint for the realtime price channel.
	PriceFeedURL string
	// MarketDataURL is the HTTP quote service used for scheduled pull refreshes.
	MarketDataURL string
	// ConnectTimeout bounds how long a realtime connection attempt may stay
	// in "connecting" before it is reported as a timeout error.
	ConnectTimeout time.Duration
	// RefreshSpec is the cron spec for the pull-refresh job, e.g. "@every 5m".
	RefreshSpec string
	// CORSOrigins lists allowed origins for the mobile/web clients.
	CORSOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PORTICO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("PORTICO_PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		PriceFeedURL:   getEnv("PRICE_FEED_URL", "wss://feed.portico.app/v1/prices"),
		MarketDataURL:  getEnv("MARKET_DATA_URL", "https://quotes.portico.app/v1"),
		ConnectTimeout: time.Duration(getEnvAsInt("CONNECT_TIMEOUT_SECONDS", 30)) * time.Second,
		RefreshSpec:    getEnv("PRICE_REFRESH_SPEC", "@every 5m"),
		CORSOrigins:    []string{getEnv("CORS_ORIGIN", "*")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}

// DatabasePath is the location of the sqlite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "portico.db")
}

// SnapshotPath is the location of the persisted realtime price book.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "pricebook.msgpack")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
