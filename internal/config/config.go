package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Storage
	DBPath string `envconfig:"DB_PATH" default:"architect.db"`

	// Anthropic (optional — server starts without extraction/chat when unset)
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`

	// Identity
	// DemoUserID is the fallback user key when auth is disabled — the demo
	// deployment is effectively single-user.
	DemoUserID string `envconfig:"DEMO_USER_ID" default:"demo-user"`
	AuthSecret string `envconfig:"AUTH_SECRET"` // HS256 secret; empty disables demo auth

	// HTTP
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`

	// Extraction
	ExtractCacheSize int `envconfig:"EXTRACT_CACHE_SIZE" default:"128"`
}

// AnthropicEnabled returns true if an Anthropic API key is configured.
func (c *Config) AnthropicEnabled() bool {
	return c.AnthropicAPIKey != ""
}

// AuthEnabled returns true if demo JWT auth is configured.
func (c *Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
