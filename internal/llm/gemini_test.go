package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geminiRequest is the subset of the generateContent body the provider controls
type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	GenerationConfig struct {
		MaxOutputTokens  int     `json:"maxOutputTokens"`
		Temperature      float64 `json:"temperature"`
		ResponseMIMEType string  `json:"responseMimeType"`
	} `json:"generationConfig"`
}

func geminiServer(t *testing.T, body string, check func(r *http.Request, req geminiRequest)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("Expected a generateContent call, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected key query parameter test-key, got %q", r.URL.Query().Get("key"))
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGemini(t *testing.T, baseURL string) *GeminiProvider {
	t.Helper()
	p, err := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: baseURL, MaxTokens: 512})
	require.NoError(t, err)
	return p
}

func TestNewGeminiProvider_MissingKey(t *testing.T) {
	p, err := NewGeminiProvider(Config{Provider: "gemini"})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestGeminiProvider_Generate_JSONMode(t *testing.T) {
	body := `{"candidates":[{"content":{"role":"model","parts":[{"text":"  {\"status\":\"permitted\"}  "}]}}],
		"usageMetadata":{"promptTokenCount":30,"candidatesTokenCount":12,"totalTokenCount":42}}`
	server := geminiServer(t, body, func(r *http.Request, req geminiRequest) {
		assert.Contains(t, r.URL.Path, "models/gemini-1.5-pro")
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)
		assert.Equal(t, 512, req.GenerationConfig.MaxOutputTokens)
		if assert.NotNil(t, req.SystemInstruction) && assert.Len(t, req.SystemInstruction.Parts, 1) {
			assert.Equal(t, "Extract zoning facts.", req.SystemInstruction.Parts[0].Text)
		}
		if assert.Len(t, req.Contents, 1) && assert.NotEmpty(t, req.Contents[0].Parts) {
			assert.Equal(t, "Page text", req.Contents[0].Parts[0].Text)
		}
	})

	p := newTestGemini(t, server.URL)
	resp, err := p.Generate(context.Background(), GenerateRequest{
		Model:  "gemini-1.5-pro",
		System: "Extract zoning facts.",
		Prompt: "Page text",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"status":"permitted"}`, resp.Text)
	assert.Equal(t, "gemini-1.5-pro", resp.Model)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestGeminiProvider_Generate_PlainText(t *testing.T) {
	body := `{"candidates":[{"content":{"role":"model","parts":[{"text":"# Guide"}]}}]}`
	server := geminiServer(t, body, func(r *http.Request, req geminiRequest) {
		assert.Contains(t, r.URL.Path, "models/gemini-1.5-flash")
		assert.Empty(t, req.GenerationConfig.ResponseMIMEType)
		assert.Nil(t, req.SystemInstruction)
	})

	p := newTestGemini(t, server.URL)
	resp, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Write the guide."})
	require.NoError(t, err)
	assert.Equal(t, "# Guide", resp.Text)
	assert.Equal(t, 0, resp.TokensUsed)
}

func TestGeminiProvider_Generate_NoContent(t *testing.T) {
	body := `{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":1}]}`
	server := geminiServer(t, body, nil)

	p := newTestGemini(t, server.URL)
	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Write the guide."})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoContent), "expected ErrNoContent, got %v", err)
}

func TestGeminiProvider_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	p := newTestGemini(t, server.URL)
	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Write the guide."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gemini API error")
	assert.False(t, errors.Is(err, ErrNoContent))
}

func TestGeminiProvider_Configure(t *testing.T) {
	p := &GeminiProvider{config: Config{MaxTokens: 1000}}

	gm := &genai.GenerativeModel{}
	p.configure(gm, GenerateRequest{JSON: true, System: "sys", Temperature: 0.7, MaxTokens: 200})
	assert.Equal(t, "application/json", gm.ResponseMIMEType)
	require.NotNil(t, gm.SystemInstruction)
	require.NotNil(t, gm.MaxOutputTokens)
	assert.Equal(t, int32(200), *gm.MaxOutputTokens)
	require.NotNil(t, gm.Temperature)
	assert.InDelta(t, 0.7, *gm.Temperature, 1e-6)

	plain := &genai.GenerativeModel{}
	p.configure(plain, GenerateRequest{})
	assert.Empty(t, plain.ResponseMIMEType)
	assert.Nil(t, plain.SystemInstruction)
	assert.Equal(t, int32(1000), *plain.MaxOutputTokens)
	assert.InDelta(t, 0.3, *plain.Temperature, 1e-6)
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil response", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{
			name: "first candidate without content is skipped",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
			}},
			want: "ab",
		},
		{
			name: "whitespace only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("  \n")}}},
			}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, responseText(tt.resp))
		})
	}
}
