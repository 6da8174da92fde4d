package llm

import (
	"context"
	"errors"
)

// ErrNoContent is returned when a provider answers without any text
var ErrNoContent = errors.New("no content in response")

// Provider is a generative text capability
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate produces text for a system instruction and a user prompt
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest is one completion call
type GenerateRequest struct {
	// System is the style/role instruction
	System string

	// Prompt is the user-content payload
	Prompt string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length; zero uses the configured limit
	MaxTokens int

	// Temperature; zero uses the provider default for the call
	Temperature float32

	// JSON asks the provider to return a single JSON object
	JSON bool
}

// GenerateResponse is the provider's answer
type GenerateResponse struct {
	// Text is the generated content, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "gemini", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   60,
		MaxTokens: 4000,
	}
}

func (c Config) model(override, fallback string) string {
	if override != "" {
		return override
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 4000
}

func (c Config) temperature(override float32) float32 {
	if override > 0 {
		return override
	}
	return 0.3
}
