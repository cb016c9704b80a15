package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SourceConfig describes the page the price is scraped from
type SourceConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	RetryCount int           `mapstructure:"retry_count"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type           string        `mapstructure:"type"` // "memory" or "postgres"
	DatabaseURL    string        `mapstructure:"database_url"`
	ValidityWindow time.Duration `mapstructure:"validity_window"`
	PurgeAfter     time.Duration `mapstructure:"purge_after"`
	SingleFlight   bool          `mapstructure:"single_flight"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute per client IP, 0 disables
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/fastlane/")

	// Environment variable settings: FASTLANE_CACHE_TYPE -> cache.type
	v.SetEnvPrefix("FASTLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads variables from ./.env without overriding ones already set.
// A missing file is not an error.
func loadEnvFile() error {
	err := gotenv.Load(".env")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "15s")

	// Source defaults
	v.SetDefault("source.url", "https://fastlane.co.il/")
	v.SetDefault("source.timeout", "10s")
	v.SetDefault("source.user_agent", "Mozilla/5.0 (FastLane-Price-Service/1.0)")
	v.SetDefault("source.retry_count", 0)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.validity_window", "5m")
	v.SetDefault("cache.purge_after", "1h")
	v.SetDefault("cache.single_flight", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got: %s", config.Server.ShutdownTimeout)
	}

	if config.Source.URL == "" {
		return fmt.Errorf("source URL is required (set FASTLANE_SOURCE_URL)")
	}

	if config.Source.Timeout <= 0 {
		return fmt.Errorf("source timeout must be positive, got: %s", config.Source.Timeout)
	}

	if config.Source.RetryCount < 0 {
		return fmt.Errorf("source retry count must not be negative, got: %d", config.Source.RetryCount)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "postgres" {
		return fmt.Errorf("cache type must be 'memory' or 'postgres', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "postgres" && config.Cache.DatabaseURL == "" {
		return fmt.Errorf("database URL is required when cache type is 'postgres'")
	}

	if config.Cache.ValidityWindow <= 0 {
		return fmt.Errorf("cache validity window must be positive, got: %s", config.Cache.ValidityWindow)
	}

	if config.Cache.PurgeAfter < config.Cache.ValidityWindow {
		return fmt.Errorf("cache purge_after (%s) must not be shorter than validity_window (%s)",
			config.Cache.PurgeAfter, config.Cache.ValidityWindow)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("per-IP rate limit must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
