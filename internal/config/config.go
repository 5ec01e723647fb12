// Package config provides application configuration loading from environment
// variables and .env files, with viper handling precedence and defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv      string // Application environment (dev, staging, prod)
	HTTPAddr    string // HTTP server bind address (e.g. ":8080")
	MetricsAddr string // Metrics server bind address

	StoreType   string // Storage backend type (postgres or memory)
	DatabaseDSN string // PostgreSQL connection string

	ManifestPath string // Local manifest file; takes precedence over ManifestURL
	ManifestURL  string // Remote manifest endpoint

	TrackingEndpoint string // Analytics egress URL; empty disables tracking
	TrackingAppID    string // App identifier stamped on tracking events

	SettlingMS int // Variable-store settling window after surface activation
	StaleMS    int // Variable-store stale window after a vars push

	RateLimitPerIP int // Requests per minute per client IP
}

// Load reads configuration from environment variables and an optional .env
// file. Constraint checking is Validate's job; Load only populates.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig() // .env is optional
	v.AutomaticEnv()

	setDefaults(v)

	return &Config{
		AppEnv:           v.GetString("APP_ENV"),
		HTTPAddr:         v.GetString("APP_HTTP_ADDR"),
		MetricsAddr:      v.GetString("METRICS_ADDR"),
		StoreType:        v.GetString("STORE_TYPE"),
		DatabaseDSN:      v.GetString("DB_DSN"),
		ManifestPath:     v.GetString("MANIFEST_PATH"),
		ManifestURL:      v.GetString("MANIFEST_URL"),
		TrackingEndpoint: v.GetString("TRACKING_ENDPOINT"),
		TrackingAppID:    v.GetString("TRACKING_APP_ID"),
		SettlingMS:       v.GetInt("SETTLING_MS"),
		StaleMS:          v.GetInt("STALE_MS"),
		RateLimitPerIP:   v.GetInt("RATE_LIMIT_PER_IP"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("STORE_TYPE", "memory")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("MANIFEST_PATH", "")
	v.SetDefault("MANIFEST_URL", "")
	v.SetDefault("TRACKING_ENDPOINT", "")
	v.SetDefault("TRACKING_APP_ID", "")
	v.SetDefault("SETTLING_MS", 300)
	v.SetDefault("STALE_MS", 600)
	v.SetDefault("RATE_LIMIT_PER_IP", 100)
}

// SettlingWindow returns the settling window as a duration.
func (c *Config) SettlingWindow() time.Duration {
	return time.Duration(c.SettlingMS) * time.Millisecond
}

// StaleWindow returns the stale window as a duration.
func (c *Config) StaleWindow() time.Duration {
	return time.Duration(c.StaleMS) * time.Millisecond
}

// ValidationError describes a configuration constraint violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks startup constraints so misconfiguration fails fast rather
// than surfacing mid-session.
func (c *Config) Validate() error {
	if c.StoreType != "memory" && c.StoreType != "postgres" {
		return ValidationError{
			Field:   "STORE_TYPE",
			Message: fmt.Sprintf("must be 'memory' or 'postgres', got '%s'", c.StoreType),
		}
	}
	if c.StoreType == "postgres" && c.DatabaseDSN == "" {
		return ValidationError{
			Field:   "DB_DSN",
			Message: "database DSN is required when STORE_TYPE=postgres",
		}
	}
	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "APP_HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}
	if c.MetricsAddr == "" {
		return ValidationError{
			Field:   "METRICS_ADDR",
			Message: "metrics server address cannot be empty",
		}
	}
	if c.ManifestPath == "" && c.ManifestURL == "" {
		return ValidationError{
			Field:   "MANIFEST_PATH",
			Message: "either MANIFEST_PATH or MANIFEST_URL must be set",
		}
	}
	if c.SettlingMS < 0 {
		return ValidationError{
			Field:   "SETTLING_MS",
			Message: "settling window cannot be negative",
		}
	}
	if c.StaleMS < 0 {
		return ValidationError{
			Field:   "STALE_MS",
			Message: "stale window cannot be negative",
		}
	}
	if c.TrackingEndpoint != "" && c.TrackingAppID == "" {
		return ValidationError{
			Field:   "TRACKING_APP_ID",
			Message: "app id is required when TRACKING_ENDPOINT is set",
		}
	}
	return nil
}
