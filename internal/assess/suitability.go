// Package assess decides whether a knowledge record may proceed to document generation.
package assess

import (
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/score"
)

// DefaultMinConfidence is the confidence floor used when none is configured
const DefaultMinConfidence = 60

// Issue strings. Operators and review tooling match on these verbatim.
const (
	IssueLowConfidence   = "confidence below threshold"
	IssueNoStructured    = "no structured data extracted"
	IssueNoNarrativeBase = "no narrative basis for generation"
)

// Result is the assessor's verdict
type Result struct {
	IsSuitable bool     `json:"isSuitable"`
	Issues     []string `json:"issues"`
}

// Reason joins the issues into a single skip reason
func (r Result) Reason() string {
	return strings.Join(r.Issues, "; ")
}

// Assessor gates records by confidence, structured content and narrative basis
type Assessor struct {
	minConfidence float64
}

// NewAssessor creates an assessor. A non-positive minimum falls back to the default.
func NewAssessor(minConfidence float64) *Assessor {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Assessor{minConfidence: minConfidence}
}

// NewExactAssessor creates an assessor that uses minConfidence as given, zero included
func NewExactAssessor(minConfidence float64) *Assessor {
	return &Assessor{minConfidence: minConfidence}
}

// MinConfidence returns the configured threshold
func (a *Assessor) MinConfidence() float64 {
	return a.minConfidence
}

// Assess evaluates every rule and collects all violations
func (a *Assessor) Assess(r *model.KnowledgeRecord) Result {
	issues := []string{}

	if r.ConfidenceScore == nil || *r.ConfidenceScore < a.minConfidence {
		issues = append(issues, IssueLowConfidence)
	}

	populated := false
	for _, ok := range score.Completeness(r) {
		if ok {
			populated = true
			break
		}
	}
	if !populated {
		issues = append(issues, IssueNoStructured)
	}

	if strings.TrimSpace(r.Provenance.RawText) == "" && strings.TrimSpace(r.InterpretiveSummary) == "" {
		issues = append(issues, IssueNoNarrativeBase)
	}

	return Result{
		IsSuitable: len(issues) == 0,
		Issues:     issues,
	}
}
