package config

import (
	"github.com/caarlos0/env/v11"
)

// envOverrides is the set of environment variables that may seed or override
// the stored configuration. Provider-specific key variables are only applied
// when they match the active provider.
type envOverrides struct {
	Provider          string `env:"LINEUPAI_PROVIDER"`
	APIKey            string `env:"LINEUPAI_API_KEY"`
	OpenAIKey         string `env:"OPENAI_API_KEY"`
	AnthropicKey      string `env:"ANTHROPIC_API_KEY"`
	SleeperUsername   string `env:"SLEEPER_USERNAME"`
	FantasyProsAPIKey string `env:"FANTASYPROS_API_KEY"`
}

// ApplyEnvOverrides overlays environment variables onto cfg. It is called
// once during orchestrator initialization; variables take precedence over
// the stored values.
func ApplyEnvOverrides(cfg *AppConfig) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}

	if o.Provider != "" {
		cfg.AIProvider = o.Provider
	}
	if o.SleeperUsername != "" {
		cfg.SleeperUsername = o.SleeperUsername
	}
	if o.FantasyProsAPIKey != "" {
		cfg.FantasyProsAPIKey = o.FantasyProsAPIKey
	}

	// LINEUPAI_API_KEY wins over the per-provider variables.
	switch {
	case o.APIKey != "":
		cfg.AIAPIKey = o.APIKey
	case cfg.AIProvider == ProviderOpenAI && o.OpenAIKey != "":
		cfg.AIAPIKey = o.OpenAIKey
	case cfg.AIProvider == ProviderAnthropic && o.AnthropicKey != "":
		cfg.AIAPIKey = o.AnthropicKey
	}
	return nil
}
