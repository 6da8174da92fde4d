package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// NewProvider creates a new LLM provider based on configuration.
// An empty provider name returns nil, nil (LLM disabled).
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, gemini, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config, filling the API key
// from the provider's conventional environment variable when unset
func ConfigFromModel(mc model.LLMConfig, proxy model.SourceConfig) Config {
	cfg := Config{
		Provider:   mc.Provider,
		Model:      mc.Model,
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Timeout:    mc.Timeout,
		MaxTokens:  mc.MaxTokens,
		HTTPProxy:  proxy.HTTPProxy,
		HTTPSProxy: proxy.HTTPSProxy,
		NoProxy:    proxy.NoProxy,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = APIKeyFromEnv(cfg.Provider)
	}
	return cfg
}

// APIKeyFromEnv returns the API key for provider from its environment variable
func APIKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini", "google":
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
