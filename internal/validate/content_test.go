package validate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceURL = "https://codes.example.gov/san-diego/chapter-5"

// buildDocument renders a document covering the outline, skipping any title in omit
func buildDocument(outline Outline, wordsPerSection int, omit string) string {
	filler := strings.TrimSpace(strings.Repeat("rental ", wordsPerSection))

	var b strings.Builder
	b.WriteString("# Short-Term Rental Compliance Guide: San Diego, CA\n\n")
	for _, s := range outline {
		if s.Title != omit {
			fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", s.Number, s.Title, filler)
		}
		for i, sub := range s.Subsections {
			if sub == omit {
				continue
			}
			fmt.Fprintf(&b, "### %c. %s\n\n%s\n\n", 'A'+i, sub, filler)
		}
	}
	fmt.Fprintf(&b, "Under Sec. 510.0101 of the municipal code, see %s.\n", sourceURL)
	return b.String()
}

func TestValidate_RoundTrip(t *testing.T) {
	v := NewValidator(0, nil)
	doc := buildDocument(DefaultOutline(), 80, "")

	result := v.Validate(doc, []string{sourceURL})

	assert.True(t, result.IsValid, "errors: %v", result.Errors)
	assert.True(t, result.MeetsMinWords)
	assert.True(t, result.HasAllSections)
	assert.Empty(t, result.MissingSections)
	assert.False(t, result.HasPlaceholders)
	assert.True(t, result.HasCitations)
	assert.True(t, result.HasSourceURL)
	assert.Empty(t, result.Warnings)
}

func TestValidate_RemovingAnySectionInvalidates(t *testing.T) {
	v := NewValidator(0, nil)

	for _, title := range DefaultOutline().Titles() {
		t.Run(title, func(t *testing.T) {
			doc := buildDocument(DefaultOutline(), 80, title)

			result := v.Validate(doc, []string{sourceURL})

			assert.False(t, result.IsValid)
			assert.False(t, result.HasAllSections)
			assert.Equal(t, []string{title}, result.MissingSections)
		})
	}
}

func TestValidate_ShortDocument(t *testing.T) {
	v := NewValidator(0, nil)
	doc := buildDocument(DefaultOutline(), 5, "")

	result := v.Validate(doc, []string{sourceURL})

	assert.False(t, result.IsValid)
	assert.False(t, result.MeetsMinWords)
	assert.Equal(t, DefaultMinWords, result.MinWords)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "below minimum")
}

func TestValidate_Placeholders(t *testing.T) {
	v := NewValidator(0, nil)
	doc := buildDocument(DefaultOutline(), 80, "") + "\nPermit fee: [INSERT FEE]. Lorem Ipsum.\n"

	result := v.Validate(doc, []string{sourceURL})

	assert.False(t, result.IsValid)
	assert.True(t, result.HasPlaceholders)
	assert.ElementsMatch(t, []string{"[insert", "lorem ipsum"}, result.PlaceholdersFound)
}

func TestValidate_WarningsDoNotAffectValidity(t *testing.T) {
	v := NewValidator(0, nil)
	doc := strings.Replace(buildDocument(DefaultOutline(), 80, ""),
		"Under Sec. 510.0101 of the municipal code, see "+sourceURL+".", "", 1)

	result := v.Validate(doc, []string{sourceURL})

	assert.True(t, result.IsValid)
	assert.False(t, result.HasCitations)
	assert.False(t, result.HasSourceURL)
	assert.Len(t, result.Warnings, 2)
}

func TestValidate_SectionOrderIrrelevant(t *testing.T) {
	outline := DefaultOutline()
	reversed := make(Outline, len(outline))
	for i, s := range outline {
		reversed[len(outline)-1-i] = s
	}

	result := NewValidator(0, nil).Validate(buildDocument(reversed, 80, ""), []string{sourceURL})

	assert.True(t, result.HasAllSections)
}

func TestValidate_CustomMinWords(t *testing.T) {
	v := NewValidator(10, Outline{{Number: 1, Title: "Overview"}})

	result := v.Validate("## Overview\n\none two three four five six seven eight nine ten", nil)

	assert.True(t, result.IsValid)
	assert.Equal(t, 12, result.WordCount)
}

func TestCitationPattern(t *testing.T) {
	matches := []string{"§ 12.3", "§12", "Section 4-101", "Sec. 5", "Chapter 7", "Ord. No. 123", "Title 17", "42 U.S.C. 1983"}
	for _, s := range matches {
		assert.True(t, citationPattern.MatchString(s), s)
	}

	misses := []string{"this section covers", "chapter one", "the title of the permit"}
	for _, s := range misses {
		assert.False(t, citationPattern.MatchString(s), s)
	}
}

func TestExtractSections(t *testing.T) {
	md := strings.Join([]string{
		"# Guide",
		"## 1. Overview",
		"### A. Jurisdiction Summary",
		"text",
		"```",
		"## not a heading",
		"```",
		"## 1. Overview",
		"####### too deep",
		"#nospace",
		"## **Fees** ##",
	}, "\n")

	sections := ExtractSections(md)

	require.Len(t, sections, 5)
	assert.Equal(t, "guide", sections[0].ID)
	assert.Equal(t, 1, sections[0].Level)
	assert.Equal(t, "1-overview", sections[1].ID)
	assert.Equal(t, "A. Jurisdiction Summary", sections[2].Title)
	assert.Equal(t, 3, sections[2].Level)
	assert.Equal(t, "1-overview-2", sections[3].ID)
	assert.Equal(t, "Fees", sections[4].Title)
}

func TestNormalizeTitle(t *testing.T) {
	tests := [][2]string{
		{"1. Overview", "overview"},
		{"B. Regulatory  Status", "regulatory status"},
		{"Section 5: Permits and Registration", "permits and registration"},
		{"Definitions", "definitions"},
		{"iv) Fees", "fees"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt[1], normalizeTitle(tt[0]), tt[0])
	}
}
