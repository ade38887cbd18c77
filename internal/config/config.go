// Package config loads service settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigError names the offending field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

type Config struct {
	HTTPAddr  string          `yaml:"http_addr"`
	LogLevel  string          `yaml:"log_level"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Auth      AuthConfig      `yaml:"auth"`
	Routing   RoutingConfig   `yaml:"routing"`
	Search    SearchConfig    `yaml:"search"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type DatasetConfig struct {
	// Source is a file path, a CSV URL or a Google Sheets link.
	Source     string `yaml:"source"`
	LatColumn  string `yaml:"lat_column"`
	LngColumn  string `yaml:"lng_column"`
	NameColumn string `yaml:"name_column"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type AuthConfig struct {
	// JWTSecret signs admin tokens. Empty disables admin endpoints.
	JWTSecret string `yaml:"jwt_secret"`
}

type RoutingConfig struct {
	OpenRouteServiceKey string        `yaml:"openrouteservice_api_key"`
	MapboxToken         string        `yaml:"mapbox_access_token"`
	Profile             string        `yaml:"profile"`
	Timeout             time.Duration `yaml:"timeout"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries     int           `yaml:"cache_max_entries"`
}

type SearchConfig struct {
	DefaultRadiusMeters float64 `yaml:"default_radius_m"`
	MaxRadiusMeters     float64 `yaml:"max_radius_m"`
	Workers             int     `yaml:"workers"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
		Dataset: DatasetConfig{
			LatColumn:  "LATITUDE",
			LngColumn:  "LONGITUDE",
			NameColumn: "ODP NAME",
		},
		NATS: NATSConfig{Subject: "odp.events"},
		Routing: RoutingConfig{
			Profile: "driving",
			Timeout: 5 * time.Second,
		},
		Search: SearchConfig{
			DefaultRadiusMeters: 250,
			MaxRadiusMeters:     5000,
			Workers:             8,
		},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)

	c.Dataset.Source = getenv("DATASET_SOURCE", c.Dataset.Source)
	c.Dataset.LatColumn = getenv("DATASET_LAT_COLUMN", c.Dataset.LatColumn)
	c.Dataset.LngColumn = getenv("DATASET_LNG_COLUMN", c.Dataset.LngColumn)
	c.Dataset.NameColumn = getenv("DATASET_NAME_COLUMN", c.Dataset.NameColumn)

	c.Redis.Addr = getenv("REDIS_ADDR", c.Redis.Addr)
	c.NATS.URL = getenv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getenv("NATS_SUBJECT", c.NATS.Subject)
	c.Auth.JWTSecret = getenv("JWT_SECRET", c.Auth.JWTSecret)

	c.Routing.OpenRouteServiceKey = getenv("OPENROUTESERVICE_API_KEY", c.Routing.OpenRouteServiceKey)
	c.Routing.MapboxToken = getenv("MAPBOX_ACCESS_TOKEN", c.Routing.MapboxToken)
	c.Routing.Profile = getenv("ROUTING_PROFILE", c.Routing.Profile)
	c.Routing.Timeout = time.Duration(parseIntEnv("ROUTING_TIMEOUT_MS", int(c.Routing.Timeout/time.Millisecond))) * time.Millisecond
	c.Routing.CacheTTL = time.Duration(parseIntEnv("ROUTE_CACHE_TTL_SEC", int(c.Routing.CacheTTL/time.Second))) * time.Second
	c.Routing.CacheMaxEntries = parseIntEnv("ROUTE_CACHE_MAX_ENTRIES", c.Routing.CacheMaxEntries)

	c.Search.DefaultRadiusMeters = parseFloatEnv("SEARCH_DEFAULT_RADIUS_M", c.Search.DefaultRadiusMeters)
	c.Search.MaxRadiusMeters = parseFloatEnv("SEARCH_MAX_RADIUS_M", c.Search.MaxRadiusMeters)
	c.Search.Workers = parseIntEnv("SEARCH_WORKERS", c.Search.Workers)

	c.RateLimit.RPS = parseFloatEnv("RATE_SEARCH_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = parseIntEnv("RATE_SEARCH_BURST", c.RateLimit.Burst)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, &ConfigError{Field: "HTTP_ADDR", Message: "cannot be empty"})
	}
	if c.Dataset.Source == "" {
		errs = append(errs, &ConfigError{Field: "DATASET_SOURCE", Message: "required but not set"})
	}
	switch c.Routing.Profile {
	case "driving", "walking", "cycling":
	default:
		errs = append(errs, &ConfigError{Field: "ROUTING_PROFILE", Message: "must be driving, walking or cycling"})
	}
	if c.Routing.Timeout <= 0 {
		errs = append(errs, &ConfigError{Field: "ROUTING_TIMEOUT_MS", Message: "must be positive"})
	}
	if c.Routing.CacheTTL < 0 {
		errs = append(errs, &ConfigError{Field: "ROUTE_CACHE_TTL_SEC", Message: "must not be negative"})
	}
	if c.Routing.CacheMaxEntries < 0 {
		errs = append(errs, &ConfigError{Field: "ROUTE_CACHE_MAX_ENTRIES", Message: "must not be negative"})
	}
	if c.Search.DefaultRadiusMeters <= 0 {
		errs = append(errs, &ConfigError{Field: "SEARCH_DEFAULT_RADIUS_M", Message: "must be positive"})
	}
	if c.Search.MaxRadiusMeters > 0 && c.Search.MaxRadiusMeters < c.Search.DefaultRadiusMeters {
		errs = append(errs, &ConfigError{Field: "SEARCH_MAX_RADIUS_M", Message: "must not be below the default radius"})
	}
	if c.Search.Workers < 1 {
		errs = append(errs, &ConfigError{Field: "SEARCH_WORKERS", Message: "must be at least 1"})
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, &ConfigError{Field: "RATE_SEARCH_RPS", Message: "rate and burst must be positive"})
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
