package model

import "time"

// BatchReport is the artifact produced by one orchestrator run.
// Downstream review tooling consumes this JSON shape; keep field names stable.
type BatchReport struct {
	Success     int           `json:"success"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Total       int           `json:"total"`
	Details     []BatchDetail `json:"details"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Params      BatchParams   `json:"params"`
}

// BatchParams records the filter a run was invoked with
type BatchParams struct {
	JurisdictionFilter string  `json:"jurisdictionFilter,omitempty"`
	MinConfidence      float64 `json:"minConfidence"`
	Limit              int     `json:"limit,omitempty"`
	DryRun             bool    `json:"dryRun"`
	Verbose            bool    `json:"verbose"`
}

// BatchDetail is the outcome of one candidate
type BatchDetail struct {
	JurisdictionKey  string      `json:"jurisdictionKey"`
	Status           BatchStatus `json:"status"`
	Reason           string      `json:"reason,omitempty"`
	OutputID         string      `json:"outputId,omitempty"`
	WordCount        *int        `json:"wordCount,omitempty"`
	ConfidenceScore  *float64    `json:"confidenceScore,omitempty"`
	ProcessingTimeMs *int64      `json:"processingTimeMs,omitempty"`
}

// BatchStatus is the per-item outcome
type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchFailed  BatchStatus = "failed"
	BatchSkipped BatchStatus = "skipped"
)

// NewBatchReport starts an empty report for params
func NewBatchReport(params BatchParams) *BatchReport {
	return &BatchReport{
		Details: []BatchDetail{},
		Params:  params,
	}
}

// Add appends a detail and updates the counters
func (r *BatchReport) Add(d BatchDetail) {
	r.Details = append(r.Details, d)
	r.Total++
	switch d.Status {
	case BatchSuccess:
		r.Success++
	case BatchFailed:
		r.Failed++
	case BatchSkipped:
		r.Skipped++
	}
}

// FailedDetails returns only the failed entries
func (r *BatchReport) FailedDetails() []BatchDetail {
	var failed []BatchDetail
	for _, d := range r.Details {
		if d.Status == BatchFailed {
			failed = append(failed, d)
		}
	}
	return failed
}
