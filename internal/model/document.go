package model

import "time"

// GeneratedDocument is the long-form compliance document for one jurisdiction.
// At most one exists per (locality, state).
type GeneratedDocument struct {
	ID           string           `json:"id"`
	Jurisdiction JurisdictionKey  `json:"jurisdiction"`
	Title        string           `json:"title"`
	Content      string           `json:"content"`
	Sections     []SectionHeader  `json:"sections"`
	WordCount    int              `json:"word_count"`
	Metadata     DocumentMetadata `json:"metadata"`
	CreatedAt    time.Time        `json:"created_at"`
}

// SectionHeader is one navigation entry derived from the document's headings
type SectionHeader struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// DocumentMetadata captures generation provenance
type DocumentMetadata struct {
	SourceRecordID         string           `json:"source_record_id"`
	ConfidenceAtGeneration *float64         `json:"confidence_at_generation,omitempty"`
	GeneratedAt            time.Time        `json:"generated_at"`
	Validation             ValidationResult `json:"validation"`
	ProcessingTimeMs       int64            `json:"processing_time_ms"`
	Provider               string           `json:"provider,omitempty"`
	Model                  string           `json:"model,omitempty"`
}

// ValidationResult is the structural verdict on generated content
type ValidationResult struct {
	WordCount         int      `json:"word_count"`
	MinWords          int      `json:"min_words"`
	MeetsMinWords     bool     `json:"meets_min_words"`
	HasAllSections    bool     `json:"has_all_sections"`
	MissingSections   []string `json:"missing_sections"`
	HasPlaceholders   bool     `json:"has_placeholders"`
	PlaceholdersFound []string `json:"placeholders_found,omitempty"`
	HasCitations      bool     `json:"has_citations"`
	HasSourceURL      bool     `json:"has_source_url"`
	IsValid           bool     `json:"is_valid"`
	Errors            []string `json:"errors,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}
