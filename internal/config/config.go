package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the artistpulse server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scraper  ScraperConfig
	Lookup   LookupConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ScraperConfig points at the external scraping-worker service. One endpoint
// per platform is derived from BaseURL (e.g. /workers/tiktok/analyze).
type ScraperConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LookupConfig points at the third-party handle-suggestion service used as a
// fallback when an artist has no stored handle for a platform.
type LookupConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ARTISTPULSE_PORT", 8080),
			Env:  envString("ARTISTPULSE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Scraper: ScraperConfig{
			BaseURL: os.Getenv("SCRAPER_BASE_URL"),
			Timeout: envDuration("SCRAPER_TIMEOUT", 30*time.Second),
		},
		Lookup: LookupConfig{
			BaseURL: os.Getenv("HANDLE_LOOKUP_URL"),
			Timeout: envDuration("HANDLE_LOOKUP_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("SCRAPER_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Scraper.BaseURL, "http://") && !strings.HasPrefix(c.Scraper.BaseURL, "https://") {
		return fmt.Errorf("SCRAPER_BASE_URL must start with http:// or https://, got %q", c.Scraper.BaseURL)
	}

	// Lookup is optional: without it, resolution uses stored handles only.
	if c.Lookup.BaseURL != "" &&
		!strings.HasPrefix(c.Lookup.BaseURL, "http://") && !strings.HasPrefix(c.Lookup.BaseURL, "https://") {
		return fmt.Errorf("HANDLE_LOOKUP_URL must start with http:// or https://, got %q", c.Lookup.BaseURL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
