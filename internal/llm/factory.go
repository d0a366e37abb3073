package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Supported providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// ProviderConfig selects and configures the model provider
type ProviderConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// New creates the configured provider client wrapped with instrumentation
func New(ctx context.Context, cfg ProviderConfig, logger *slog.Logger) (Client, error) {
	var client Client

	switch cfg.Provider {
	case ProviderOpenAI:
		client = NewOpenAIClient(cfg.APIKey, cfg.BaseURL, &http.Client{})
	case ProviderGemini:
		gc, err := NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		client = gc
	case ProviderNone, "":
		client = Disabled{}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderNone
	}
	return Instrument(client, provider, logger), nil
}
