package validate

import (
	"encoding/json"
	"testing"

	"github.com/ppiankov/jurisdoc/internal/model"
)

func TestAuthorityClassifier_Defaults(t *testing.T) {
	classifier := NewAuthorityClassifier(nil)

	tests := []struct {
		url      string
		expected AuthorityTier
		desc     string
	}{
		{"https://library.municode.com/ca/san_diego/codes/municipal_code", TierPrimary, "Official code publisher"},
		{"https://www.sandiego.gov/treasurer/short-term-residential-occupancy", TierPrimary, "Municipal .gov site"},
		{"https://www.ci.bend.or.us/codes", TierPrimary, "Municipal .us site"},
		{"https://leginfo.legislature.ca.gov/faces/codes.xhtml", TierPrimary, "State legislature subdomain"},
		{"https://www.law.cornell.edu/wex/zoning", TierSecondary, "Legal reference"},
		{"https://law.justia.com/codes/oregon/", TierSecondary, "Legal reference subdomain"},
		{"https://www.airbnb.com/help/article/1376", TierTertiary, "Platform help page"},
		{"https://example.com/blog/str-rules", TierTertiary, "Unknown site"},
		{"not a url", TierTertiary, "Unparseable"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, got)
			}
		})
	}
}

func TestAuthorityClassifier_DomainMapOverrides(t *testing.T) {
	classifier := NewAuthorityClassifier(&model.AuthorityConfig{
		PrimaryDomains: []string{"Codes.Example.org"},
		DomainMap: map[string]string{
			"sandiego.gov":    "secondary",
			"str.example.com": "1",
		},
	})

	if got := classifier.Classify("https://www.sandiego.gov/x"); got != TierSecondary {
		t.Errorf("Expected domain map to override .gov, got %v", got)
	}
	if got := classifier.Classify("https://str.example.com/rules"); got != TierPrimary {
		t.Errorf("Expected numeric tier to parse as primary, got %v", got)
	}
	if got := classifier.Classify("https://codes.example.org/ch7"); got != TierPrimary {
		t.Errorf("Expected case-insensitive primary domain, got %v", got)
	}
	if got := classifier.Classify("https://law.cornell.edu/"); got != TierTertiary {
		t.Errorf("Expected explicit config without secondary list to be tertiary, got %v", got)
	}
}

func TestAuthorityClassifier_ClassifyAll(t *testing.T) {
	classifier := NewAuthorityClassifier(nil)
	sources := classifier.ClassifyAll([]string{
		"https://example.com/a",
		"https://library.municode.com/or/portland",
	})

	if len(sources) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(sources))
	}
	if sources[0].Tier != TierTertiary || sources[1].Tier != TierPrimary {
		t.Errorf("Expected order to be preserved, got %+v", sources)
	}
	if !HasPrimary(sources) {
		t.Error("Expected HasPrimary to be true")
	}
	if HasPrimary(sources[:1]) {
		t.Error("Expected HasPrimary to be false for tertiary-only sources")
	}
}

func TestAuthorityTier_JSON(t *testing.T) {
	data, err := json.Marshal(SourceAuthority{URL: "https://ca.gov", Tier: TierPrimary})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"url":"https://ca.gov","tier":"primary"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}
