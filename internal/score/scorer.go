package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// Weights assigned to each scoring input. They sum to 100.
const (
	WeightGroupCoverage  = 60 // Split evenly across field groups
	WeightSummary        = 15
	WeightSupportingText = 15
	WeightSourceURL      = 10
)

// Scorer calculates the structural quality score and completeness map of a record.
// It is pure: no I/O, and it never touches the extraction-time confidence score.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate returns the quality report for r
func (s *Scorer) Calculate(r *model.KnowledgeRecord) model.QualityReport {
	completeness := Completeness(r)

	var signals []model.Signal

	// 1. Field group coverage (0-60 points)
	coverageScore, coverageSignal := s.calculateCoverage(completeness)
	signals = append(signals, coverageSignal)

	// 2. Interpretive summary (0-15 points)
	summaryScore, summarySignal := presence(model.SignalSummary, WeightSummary,
		strings.TrimSpace(r.InterpretiveSummary) != "", "Interpretive summary present", "No interpretive summary")
	signals = append(signals, summarySignal)

	// 3. Raw supporting text (0-15 points)
	textScore, textSignal := presence(model.SignalSupportingText, WeightSupportingText,
		hasSupportingText(r), "Raw supporting text present", "No raw supporting text")
	signals = append(signals, textSignal)

	// 4. Source attribution (0-10 points)
	sourceScore, sourceSignal := presence(model.SignalSourceAttribution, WeightSourceURL,
		hasSourceURL(r), fmt.Sprintf("%d source URL(s)", len(r.Provenance.SourceURLs)), "No source URLs")
	signals = append(signals, sourceSignal)

	total := coverageScore + summaryScore + textScore + sourceScore
	if total > 100 {
		total = 100
	}

	return model.QualityReport{
		Score:        total,
		Completeness: completeness,
		Signals:      signals,
	}
}

// Apply scores r and stores the result in r.QualityScore. ConfidenceScore is left alone.
func (s *Scorer) Apply(r *model.KnowledgeRecord) model.QualityReport {
	report := s.Calculate(r)
	q := report.Score
	r.QualityScore = &q
	return report
}

// Completeness maps every field group name to whether it holds any content
func Completeness(r *model.KnowledgeRecord) map[string]bool {
	out := make(map[string]bool, len(model.GroupNames))
	for _, g := range r.Groups() {
		out[g.Name] = g.Group != nil && g.Group.Populated()
	}
	return out
}

// calculateCoverage calculates field group coverage score (0-60 points)
func (s *Scorer) calculateCoverage(completeness map[string]bool) (int, model.Signal) {
	total := len(completeness)
	populated := 0
	var missing []string
	for _, name := range model.GroupNames {
		if completeness[name] {
			populated++
		} else {
			missing = append(missing, name)
		}
	}

	if total == 0 {
		return 0, model.Signal{
			Type:        model.SignalGroupCoverage,
			Severity:    model.SeverityCritical,
			Description: "No field groups defined",
		}
	}

	perGroup := WeightGroupCoverage / total
	score := populated * perGroup

	severity := model.SeverityInfo
	if populated == 0 {
		severity = model.SeverityCritical
	} else if populated < total {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalGroupCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Field groups populated: %d/%d", populated, total),
		Data: map[string]interface{}{
			"populated": populated,
			"total":     total,
			"missing":   missing,
			"score":     score,
			"formula":   fmt.Sprintf("populated_groups * (%d / total_groups)", WeightGroupCoverage),
		},
	}
}

func presence(kind model.SignalType, weight int, present bool, yes, no string) (int, model.Signal) {
	if present {
		return weight, model.Signal{
			Type:        kind,
			Severity:    model.SeverityInfo,
			Description: yes,
			Data:        map[string]interface{}{"score": weight},
		}
	}
	return 0, model.Signal{
		Type:        kind,
		Severity:    model.SeverityWarning,
		Description: no,
		Data:        map[string]interface{}{"score": 0},
	}
}

func hasSupportingText(r *model.KnowledgeRecord) bool {
	return strings.TrimSpace(r.Provenance.RawText) != ""
}

func hasSourceURL(r *model.KnowledgeRecord) bool {
	for _, u := range r.Provenance.SourceURLs {
		if strings.TrimSpace(u) != "" {
			return true
		}
	}
	return false
}
