package validate

import (
	"net/url"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// AuthorityTier ranks where a regulatory fact was published
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0
	TierPrimary   AuthorityTier = 1 // Government sites and official code publishers
	TierSecondary AuthorityTier = 2 // Legal reference and practitioner sites
	TierTertiary  AuthorityTier = 3 // Everything else: blogs, platforms, news
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// MarshalText renders the tier name in JSON output
func (t AuthorityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// SourceAuthority is the classification of one provenance URL
type SourceAuthority struct {
	URL  string        `json:"url"`
	Tier AuthorityTier `json:"tier"`
}

// AuthorityClassifier classifies provenance URLs into authority tiers
type AuthorityClassifier struct {
	domainMap map[string]AuthorityTier
	primary   []string
	secondary []string
}

// NewAuthorityClassifier creates a classifier. A nil config uses the built-in domain lists.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	c := &AuthorityClassifier{
		domainMap: make(map[string]AuthorityTier, len(config.DomainMap)),
		primary:   lowerAll(config.PrimaryDomains),
		secondary: lowerAll(config.SecondaryDomains),
	}
	for host, tier := range config.DomainMap {
		c.domainMap[strings.ToLower(host)] = parseTierString(tier)
	}
	return c
}

// Classify returns the tier for rawURL. Unparseable URLs are tertiary.
func (a *AuthorityClassifier) Classify(rawURL string) AuthorityTier {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Hostname() == "" {
		return TierTertiary
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primary) {
		return TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return TierSecondary
	}

	// State and municipal sites: ca.gov, sandiego.gov, ci.bend.or.us
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".us") {
		return TierPrimary
	}
	return TierTertiary
}

// ClassifyAll classifies urls in order
func (a *AuthorityClassifier) ClassifyAll(urls []string) []SourceAuthority {
	out := make([]SourceAuthority, 0, len(urls))
	for _, u := range urls {
		out = append(out, SourceAuthority{URL: u, Tier: a.Classify(u)})
	}
	return out
}

// HasPrimary reports whether any classified source is primary
func HasPrimary(sources []SourceAuthority) bool {
	for _, s := range sources {
		if s.Tier == TierPrimary {
			return true
		}
	}
	return false
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parseTierString(tier string) AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return TierPrimary
	case "secondary", "2":
		return TierSecondary
	default:
		return TierTertiary
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
