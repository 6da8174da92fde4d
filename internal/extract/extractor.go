package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/llm"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/util"
)

// DefaultMaxInputChars bounds the raw text sent for extraction
const DefaultMaxInputChars = 24000

// ErrNoProvider is returned when extraction is attempted without a configured LLM
var ErrNoProvider = errors.New("no extraction provider configured")

// Extraction is the structured result of reading raw regulatory text
type Extraction struct {
	Occupancy         *model.OccupancyRules
	Definitions       *model.DefinitionRules
	Zoning            *model.ZoningRules
	LocalRequirements *model.LocalRequirementRules
	Summary           string
	Status            model.RegulatoryStatus
	Confidence        *float64 // nil when the payload carries no confidence
	Model             string
}

// Extractor turns raw text into structured fields
type Extractor interface {
	Extract(ctx context.Context, rawText, topic string) (*Extraction, error)
}

// payload is the JSON shape requested from the provider
type payload struct {
	Occupancy           *model.OccupancyRules        `json:"occupancy"`
	Definitions         *model.DefinitionRules       `json:"definitions"`
	Zoning              *model.ZoningRules           `json:"zoning"`
	LocalRequirements   *model.LocalRequirementRules `json:"local_requirements"`
	InterpretiveSummary string                       `json:"interpretive_summary"`
	Status              string                       `json:"status"`
	Confidence          *float64                     `json:"confidence"`
}

const systemPrompt = `You extract short-term rental regulations from municipal and state code text.
Report only facts stated in the text. Use null for anything the text does not state.
The confidence value reflects how directly the text supports the extracted facts.`

// LLMExtractor extracts fields with a generative provider in JSON mode
type LLMExtractor struct {
	provider      llm.Provider
	maxInputChars int
	logger        *slog.Logger
}

// NewLLMExtractor creates an extractor backed by provider
func NewLLMExtractor(provider llm.Provider, maxInputChars int, logger *slog.Logger) *LLMExtractor {
	if maxInputChars <= 0 {
		maxInputChars = DefaultMaxInputChars
	}
	return &LLMExtractor{
		provider:      provider,
		maxInputChars: maxInputChars,
		logger:        util.OrDiscard(logger),
	}
}

// Extract implements Extractor
func (e *LLMExtractor) Extract(ctx context.Context, rawText, topic string) (*Extraction, error) {
	if e.provider == nil {
		return nil, ErrNoProvider
	}
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, fmt.Errorf("extract: empty raw text")
	}

	text := Excerpt(rawText, topic, e.maxInputChars)
	if len(text) < len(rawText) {
		e.logger.Debug("raw text excerpted for extraction", "from", len(rawText), "to", len(text))
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System: systemPrompt,
		Prompt: BuildPrompt(text, topic),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	ext, err := ParseExtraction(resp.Text)
	if err != nil {
		return nil, err
	}
	ext.Model = resp.Model

	e.logger.Debug("fields extracted",
		"provider", e.provider.Name(),
		"status", ext.Status,
		"has_confidence", ext.Confidence != nil,
		"tokens", resp.TokensUsed)

	return ext, nil
}

// BuildPrompt renders the extraction request for text
func BuildPrompt(text, topic string) string {
	var b strings.Builder
	if topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n\n", topic)
	}
	b.WriteString("Return a JSON object with exactly this shape:\n")
	b.WriteString(RenderSchema())
	b.WriteString("\n\nSource text:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}

// ParseExtraction decodes a provider response. Code fences are tolerated,
// unknown statuses become "unclear" and confidence is clamped to [0,100].
func ParseExtraction(raw string) (*Extraction, error) {
	raw = stripCodeFence(raw)

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	ext := &Extraction{
		Occupancy:         p.Occupancy,
		Definitions:       p.Definitions,
		Zoning:            p.Zoning,
		LocalRequirements: p.LocalRequirements,
		Summary:           strings.TrimSpace(p.InterpretiveSummary),
		Status:            model.RegulatoryStatus(strings.ToLower(strings.TrimSpace(p.Status))),
	}

	// Groups with every field null carry nothing
	if !ext.Occupancy.Populated() {
		ext.Occupancy = nil
	}
	if !ext.Definitions.Populated() {
		ext.Definitions = nil
	}
	if !ext.Zoning.Populated() {
		ext.Zoning = nil
	}
	if !ext.LocalRequirements.Populated() {
		ext.LocalRequirements = nil
	}

	if ext.Status == "" || !ext.Status.Valid() {
		ext.Status = model.StatusUnclear
	}

	if p.Confidence != nil {
		v := clamp(*p.Confidence, 0, 100)
		ext.Confidence = &v
	}

	return ext, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
