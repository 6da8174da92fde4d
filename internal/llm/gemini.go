package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	apiKey string
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	return &GeminiProvider{apiKey: config.APIKey, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that a client can be created with the configured key
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	client, err := p.client(ctx)
	if err != nil {
		return false
	}
	_ = client.Close()
	return true
}

// Generate calls GenerateContent on the configured model
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	name := p.config.model(req.Model, "gemini-1.5-flash")
	gm := client.GenerativeModel(name)
	p.configure(gm, req)

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("Gemini: %w", ErrNoContent)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &GenerateResponse{
		Text:       text,
		Model:      name,
		TokensUsed: tokens,
	}, nil
}

// configure applies the request's generation settings to gm
func (p *GeminiProvider) configure(gm *genai.GenerativeModel, req GenerateRequest) {
	if req.System != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	gm.SetMaxOutputTokens(int32(p.config.maxTokens(req.MaxTokens)))
	gm.SetTemperature(p.config.temperature(req.Temperature))
	if req.JSON {
		gm.ResponseMIMEType = "application/json"
	}
}

// responseText joins the text parts of the first candidate that has any
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		if text.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(text.String())
}

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(p.config.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}
