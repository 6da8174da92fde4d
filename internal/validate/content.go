// Package validate checks generated compliance documents against structural and length contracts.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// DefaultMinWords is the minimum word count for a generated document
const DefaultMinWords = 1200

// PlaceholderMarkers are substrings that indicate incomplete generation. Matched case-insensitively.
var PlaceholderMarkers = []string{
	"[insert",
	"[placeholder",
	"lorem ipsum",
	"{{",
	"[todo",
	"tbd:",
	"[citation needed]",
	"as an ai language model",
	"[your ",
}

var citationPattern = regexp.MustCompile(
	`§\s*\d|\bSection\s+\d|\bSec\.\s*\d|\bChapter\s+\d|\bOrd\.\s*No\.\s*\d|\bTitle\s+\d|\d+\s+U\.S\.C\.`)

// Validator checks document text. It never returns an error; every finding lands in the result.
type Validator struct {
	minWords int
	outline  Outline
}

// NewValidator creates a validator. minWords <= 0 uses DefaultMinWords, a nil outline uses DefaultOutline.
func NewValidator(minWords int, outline Outline) *Validator {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	if outline == nil {
		outline = DefaultOutline()
	}
	return &Validator{minWords: minWords, outline: outline}
}

// Outline returns the required section outline
func (v *Validator) Outline() Outline {
	return v.outline
}

// MinWords returns the configured minimum word count
func (v *Validator) MinWords() int {
	return v.minWords
}

// Validate returns the structural validation result for text. sourceURLs are the
// record's provenance URLs; at least one is expected to appear in the text.
func (v *Validator) Validate(text string, sourceURLs []string) model.ValidationResult {
	result := model.ValidationResult{
		MinWords:        v.minWords,
		MissingSections: []string{},
	}

	// 1. Length
	result.WordCount = CountWords(text)
	result.MeetsMinWords = result.WordCount >= v.minWords
	if !result.MeetsMinWords {
		result.Errors = append(result.Errors,
			fmt.Sprintf("word count %d below minimum %d", result.WordCount, v.minWords))
	}

	// 2. Required sections, order-independent
	present := make(map[string]bool)
	for _, h := range ExtractSections(text) {
		present[normalizeTitle(h.Title)] = true
	}
	for _, title := range v.outline.Titles() {
		if !present[normalizeTitle(title)] {
			result.MissingSections = append(result.MissingSections, title)
		}
	}
	result.HasAllSections = len(result.MissingSections) == 0
	if !result.HasAllSections {
		result.Errors = append(result.Errors,
			"missing sections: "+strings.Join(result.MissingSections, ", "))
	}

	// 3. Placeholder artifacts
	lower := strings.ToLower(text)
	for _, marker := range PlaceholderMarkers {
		if strings.Contains(lower, marker) {
			result.PlaceholdersFound = append(result.PlaceholdersFound, marker)
		}
	}
	result.HasPlaceholders = len(result.PlaceholdersFound) > 0
	if result.HasPlaceholders {
		result.Errors = append(result.Errors,
			"placeholder artifacts found: "+strings.Join(result.PlaceholdersFound, ", "))
	}

	// 4. Warnings only
	result.HasCitations = citationPattern.MatchString(text)
	if !result.HasCitations {
		result.Warnings = append(result.Warnings, "no legal citation found")
	}

	result.HasSourceURL = referencesAny(text, sourceURLs)
	if !result.HasSourceURL {
		result.Warnings = append(result.Warnings, "source URL not referenced")
	}

	result.IsValid = result.MeetsMinWords && result.HasAllSections && !result.HasPlaceholders
	return result
}

// CountWords counts whitespace-separated tokens
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func referencesAny(text string, urls []string) bool {
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if strings.Contains(text, u) || strings.Contains(text, strings.TrimRight(u, "/")) {
			return true
		}
	}
	return false
}
