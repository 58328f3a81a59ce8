package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"atmolite.app/pkg/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server      ServerConfig      `split_words:"true"`
	Gemini      GeminiConfig      `split_words:"true"`
	Quota       QuotaConfig       `split_words:"true"`
	Cache       CacheConfig       `split_words:"true"`
	Storage     StorageConfig     `split_words:"true"`
	RemoteCache RemoteCacheConfig `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// GeminiConfig contains settings for the condition/synthesis provider.
// APIKey is deliberately not required here: credential absence is a
// per-request failure, detected before any network attempt.
type GeminiConfig struct {
	APIKey         string `envconfig:"GEMINI_API_KEY"`
	BaseURL        string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	SearchModel    string `envconfig:"GEMINI_SEARCH_MODEL" default:"gemini-2.5-flash"`
	FormatModel    string `envconfig:"GEMINI_FORMAT_MODEL" default:"gemini-2.5-flash"`
	ImageModel     string `envconfig:"GEMINI_IMAGE_MODEL" default:"gemini-2.5-flash-image"`
	TimeoutSeconds int    `envconfig:"GEMINI_TIMEOUT_SECONDS" default:"60"`
}

// QuotaConfig contains the admission thresholds for the quota gate
type QuotaConfig struct {
	MaxDailyLimit int           `envconfig:"QUOTA_MAX_DAILY_LIMIT" default:"1500"`
	MaxRPM        int           `envconfig:"QUOTA_MAX_RPM" default:"15"`
	SafetyFactor  float64       `envconfig:"QUOTA_SAFETY_FACTOR" default:"0.95"`
	Window        time.Duration `envconfig:"QUOTA_WINDOW" default:"60s"`
}

// DailyCutoff returns the effective daily admission ceiling.
func (q QuotaConfig) DailyCutoff() int {
	return int(math.Floor(float64(q.MaxDailyLimit) * q.SafetyFactor))
}

// CacheConfig contains visual cache key and expiry settings
type CacheConfig struct {
	Namespace string        `envconfig:"CACHE_NAMESPACE" default:"atmolite"`
	Version   string        `envconfig:"CACHE_VERSION" default:"v1"`
	Expiry    time.Duration `envconfig:"CACHE_EXPIRY" default:"24h"`
}

// StorageConfig contains settings for the device-local key-value store
type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	Path   string `envconfig:"STORAGE_PATH" default:"data/atmolite.db"`
}

// RemoteCacheConfig contains settings for the shared-remote cache tier.
// When RedisAddr is set the tier is Redis-backed and writable; otherwise
// the community index URL is consulted read-only.
type RemoteCacheConfig struct {
	Enabled       bool   `envconfig:"REMOTE_CACHE_ENABLED" default:"true"`
	URL           string `envconfig:"REMOTE_CACHE_URL" default:"https://raw.githubusercontent.com/atmolite/community-cache/main/community_cache.json"`
	RedisAddr     string `envconfig:"REMOTE_CACHE_REDIS_ADDR"`
	RedisPassword string `envconfig:"REMOTE_CACHE_REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REMOTE_CACHE_REDIS_DB" default:"0"`
	DialTimeout   int    `envconfig:"REMOTE_CACHE_DIAL_TIMEOUT" default:"5"`
	ReadTimeout   int    `envconfig:"REMOTE_CACHE_READ_TIMEOUT" default:"3"`
	WriteTimeout  int    `envconfig:"REMOTE_CACHE_WRITE_TIMEOUT" default:"3"`
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Gemini.Validate(); err != nil {
		return err
	}
	if err := c.Quota.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.RemoteCache.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// Validate checks generation provider configuration
func (g *GeminiConfig) Validate() error {
	if g.BaseURL == "" {
		return errors.NewConfigurationError("GEMINI_BASE_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(g.BaseURL, "http://") && !strings.HasPrefix(g.BaseURL, "https://") {
		return errors.NewConfigurationError("GEMINI_BASE_URL must start with http:// or https://", nil)
	}
	if g.SearchModel == "" || g.FormatModel == "" || g.ImageModel == "" {
		return errors.NewConfigurationError("GEMINI model names cannot be empty", nil)
	}
	if g.TimeoutSeconds < 1 {
		return errors.NewConfigurationError("GEMINI_TIMEOUT_SECONDS must be at least 1", nil)
	}
	return nil
}

// Validate checks quota gate configuration
func (q *QuotaConfig) Validate() error {
	if q.MaxDailyLimit < 1 {
		return errors.NewConfigurationError("QUOTA_MAX_DAILY_LIMIT must be at least 1", nil)
	}
	if q.MaxRPM < 1 {
		return errors.NewConfigurationError("QUOTA_MAX_RPM must be at least 1", nil)
	}
	if q.SafetyFactor <= 0 || q.SafetyFactor > 1 {
		return errors.NewConfigurationError("QUOTA_SAFETY_FACTOR must be in (0, 1]", nil)
	}
	if q.Window < time.Second {
		return errors.NewConfigurationError("QUOTA_WINDOW must be at least 1 second", nil)
	}
	return nil
}

// Validate checks cache configuration
func (c *CacheConfig) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.NewConfigurationError("CACHE_NAMESPACE cannot be empty", nil)
	}
	if c.Version == "" {
		return errors.NewConfigurationError("CACHE_VERSION cannot be empty", nil)
	}
	if c.Expiry < time.Minute {
		return errors.NewConfigurationError("CACHE_EXPIRY must be at least 1 minute", nil)
	}
	return nil
}

// Validate checks local storage configuration
func (s *StorageConfig) Validate() error {
	switch s.Driver {
	case "sqlite", "memory", "disabled":
	default:
		return errors.NewConfigurationError(
			fmt.Sprintf("STORAGE_DRIVER must be one of: sqlite, memory, disabled (got %q)", s.Driver), nil)
	}
	if s.Driver == "sqlite" && s.Path == "" {
		return errors.NewConfigurationError("STORAGE_PATH cannot be empty for the sqlite driver", nil)
	}
	return nil
}

// Validate checks remote cache tier configuration
func (r *RemoteCacheConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.RedisAddr == "" && r.URL == "" {
		return errors.NewConfigurationError("remote cache enabled but neither REMOTE_CACHE_URL nor REMOTE_CACHE_REDIS_ADDR set", nil)
	}
	if r.URL != "" && !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		return errors.NewConfigurationError("REMOTE_CACHE_URL must start with http:// or https://", nil)
	}
	if r.DialTimeout < 1 || r.ReadTimeout < 1 || r.WriteTimeout < 1 {
		return errors.NewConfigurationError("remote cache timeouts must be at least 1 second", nil)
	}
	return nil
}
