package model

// QualityReport is the scorer's output for one record
type QualityReport struct {
	Score        int             `json:"score"`        // Structural quality score (0-100)
	Completeness map[string]bool `json:"completeness"` // Field group name -> has any content
	Signals      []Signal        `json:"signals"`      // One per weighted input, with the points it earned
}

// Signal represents a scoring input with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the scoring input
type SignalType string

const (
	SignalGroupCoverage     SignalType = "group_coverage"     // Populated field groups
	SignalSummary           SignalType = "interpretive_summary"
	SignalSupportingText    SignalType = "supporting_text"
	SignalSourceAttribution SignalType = "source_attribution" // At least one source URL
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// PopulatedGroups counts the groups marked complete
func (q QualityReport) PopulatedGroups() int {
	n := 0
	for _, ok := range q.Completeness {
		if ok {
			n++
		}
	}
	return n
}
