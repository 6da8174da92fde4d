package extract

import (
	"strings"
	"unicode"
)

// regulatoryKeywords mark sentences that usually carry rules
var regulatoryKeywords = []string{
	"shall", "must", "is required", "is defined as", "means",
	"permit", "license", "registration", "zone", "zoning", "district",
	"occupan", "owner", "night", "fee", "inspection", "prohibited",
	"short-term", "short term", "transient", "vacation rental",
}

// Excerpt trims text to at most maxChars, keeping sentences that mention rules or the topic.
// Text that already fits is returned unchanged.
func Excerpt(text, topic string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	keywords := append([]string(nil), regulatoryKeywords...)
	for _, w := range strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	}) {
		if len(w) > 3 {
			keywords = append(keywords, w)
		}
	}

	var b strings.Builder
	seen := make(map[string]bool)
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		if seen[lower] || !containsAny(lower, keywords) {
			continue
		}
		seen[lower] = true

		if b.Len()+len(sentence)+1 > maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sentence)
	}

	if b.Len() == 0 {
		return truncateRunes(text, maxChars)
	}
	return b.String()
}

// splitSentences splits on terminal punctuation followed by whitespace and on newlines
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	emit := func() {
		s := strings.Join(strings.Fields(current.String()), " ")
		if len(s) >= 20 {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			emit()
			continue
		}
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?' || r == ';') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			emit()
		}
	}
	emit()

	return sentences
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
