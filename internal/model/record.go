package model

import "time"

// KnowledgeRecord is the cached, possibly partial fact sheet for one jurisdiction.
// Every field group is independently nullable.
type KnowledgeRecord struct {
	ID           string          `json:"id"`
	Jurisdiction JurisdictionKey `json:"jurisdiction"`

	Occupancy         *OccupancyRules        `json:"occupancy,omitempty"`
	Definitions       *DefinitionRules       `json:"definitions,omitempty"`
	Zoning            *ZoningRules           `json:"zoning,omitempty"`
	LocalRequirements *LocalRequirementRules `json:"local_requirements,omitempty"`

	InterpretiveSummary string           `json:"interpretive_summary,omitempty"`
	Status              RegulatoryStatus `json:"status,omitempty"`

	Provenance Provenance `json:"provenance"`

	ConfidenceScore *float64 `json:"confidence_score,omitempty"` // Extraction-time confidence (0-100)
	QualityScore    *int     `json:"quality_score,omitempty"`    // Structural score from the scorer (0-100)

	HitCount       int64      `json:"hit_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
	NeedsRefresh   bool       `json:"needs_refresh"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provenance tracks where the record's facts came from
type Provenance struct {
	DataSource  DataSource `json:"data_source"`
	SourceURLs  []string   `json:"source_urls,omitempty"`
	SearchTerms []string   `json:"search_terms,omitempty"`
	RawText     string     `json:"raw_text,omitempty"`
}

// DataSource classifies how a record was obtained
type DataSource string

const (
	DataSourceAutomated     DataSource = "automated"
	DataSourceManual        DataSource = "manual"
	DataSourceUserSubmitted DataSource = "user_submitted"
)

// RegulatoryStatus is the coarse interpretive outcome
type RegulatoryStatus string

const (
	StatusPermitted               RegulatoryStatus = "permitted"
	StatusPermittedWithConditions RegulatoryStatus = "permitted_with_conditions"
	StatusNotPermitted            RegulatoryStatus = "not_permitted"
	StatusUnclear                 RegulatoryStatus = "unclear"
	StatusNeedsResearch           RegulatoryStatus = "needs_research"
)

// Valid reports whether s is one of the known statuses (empty is allowed)
func (s RegulatoryStatus) Valid() bool {
	switch s {
	case "", StatusPermitted, StatusPermittedWithConditions, StatusNotPermitted, StatusUnclear, StatusNeedsResearch:
		return true
	}
	return false
}

// Confidence returns the confidence score, or -1 when unscored
func (r *KnowledgeRecord) Confidence() float64 {
	if r.ConfidenceScore == nil {
		return -1
	}
	return *r.ConfidenceScore
}

// IsStale reports whether the record must go through the refresh path at time now
func (r *KnowledgeRecord) IsStale(now time.Time) bool {
	if r.NeedsRefresh {
		return true
	}
	if r.CacheExpiresAt == nil {
		return true
	}
	return !now.Before(*r.CacheExpiresAt)
}

// Clone returns a deep copy so callers can mutate without touching cached values
func (r *KnowledgeRecord) Clone() *KnowledgeRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Occupancy != nil {
		v := *r.Occupancy
		c.Occupancy = &v
	}
	if r.Definitions != nil {
		v := *r.Definitions
		c.Definitions = &v
	}
	if r.Zoning != nil {
		v := *r.Zoning
		c.Zoning = &v
	}
	if r.LocalRequirements != nil {
		v := *r.LocalRequirements
		c.LocalRequirements = &v
	}
	c.Provenance.SourceURLs = append([]string(nil), r.Provenance.SourceURLs...)
	c.Provenance.SearchTerms = append([]string(nil), r.Provenance.SearchTerms...)
	if r.ConfidenceScore != nil {
		v := *r.ConfidenceScore
		c.ConfidenceScore = &v
	}
	if r.QualityScore != nil {
		v := *r.QualityScore
		c.QualityScore = &v
	}
	if r.LastAccessedAt != nil {
		v := *r.LastAccessedAt
		c.LastAccessedAt = &v
	}
	if r.CacheExpiresAt != nil {
		v := *r.CacheExpiresAt
		c.CacheExpiresAt = &v
	}
	return &c
}
