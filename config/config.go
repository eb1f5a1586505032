package config

import (
	"fmt"
	"time"
)

// Provider names accepted by AppConfig.AIProvider.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// AppConfig holds all user-supplied settings. It is persisted only through
// the encrypted Store and must never be logged or written in plaintext.
type AppConfig struct {
	AIProvider         string `json:"ai_provider"`
	AIAPIKey           string `json:"ai_api_key"`
	SleeperUsername    string `json:"sleeper_username"`
	FantasyProsAPIKey  string `json:"fantasypros_api_key"`
	CacheEnabled       bool   `json:"cache_enabled"`
	CacheDurationHours int    `json:"cache_duration_hours"`
	LogLevel           string `json:"log_level"`
	MaxRetries         int    `json:"max_retries"`
	RequestTimeoutSecs int    `json:"request_timeout"`
}

// DefaultConfig returns the settings used before the user saves anything.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		AIProvider:         ProviderMock,
		CacheEnabled:       true,
		CacheDurationHours: 24,
		LogLevel:           "info",
		MaxRetries:         3,
		RequestTimeoutSecs: 30,
	}
}

// CacheTTL returns the configured cache duration as a time.Duration.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheDurationHours) * time.Hour
}

// RequestTimeout returns the per-attempt HTTP timeout.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// Validate checks that the configuration is usable for an analysis run.
func (c *AppConfig) Validate() error {
	if c.SleeperUsername == "" {
		return fmt.Errorf("config: sleeper username is required")
	}
	switch c.AIProvider {
	case ProviderMock:
	case ProviderOpenAI, ProviderAnthropic:
		if c.AIAPIKey == "" {
			return fmt.Errorf("config: api key required for provider %q", c.AIProvider)
		}
	default:
		return fmt.Errorf("config: unknown ai provider %q", c.AIProvider)
	}
	return nil
}
