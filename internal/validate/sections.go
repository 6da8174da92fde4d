package validate

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

var (
	// "1. ", "1) ", "A. ", "iv. " style prefixes on heading titles
	numberingPrefix = regexp.MustCompile(`^(?:\d+(?:\.\d+)*|[A-Za-z]|[ivxIVX]+)[.):]\s+`)
	nonSlug         = regexp.MustCompile(`[^a-z0-9]+`)
)

// ExtractSections derives navigation headers from markdown ATX headings.
// Headings inside fenced code blocks are ignored.
func ExtractSections(markdown string) []model.SectionHeader {
	sections := []model.SectionHeader{}
	seen := make(map[string]int)
	inFence := false

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		level, title, ok := parseHeading(line)
		if !ok {
			continue
		}

		id := slug(title)
		if id == "" {
			id = "section"
		}
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}

		sections = append(sections, model.SectionHeader{ID: id, Title: title, Level: level})
	}
	return sections
}

// parseHeading returns the level and title of an ATX heading line
func parseHeading(line string) (int, string, bool) {
	if !strings.HasPrefix(line, "#") {
		return 0, "", false
	}
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level > 6 || level >= len(line) || (line[level] != ' ' && line[level] != '\t') {
		return 0, "", false
	}

	title := strings.TrimSpace(line[level:])
	title = strings.TrimSpace(strings.TrimRight(title, "#"))
	title = strings.Trim(title, "*_")
	if title == "" {
		return 0, "", false
	}
	return level, title, true
}

// normalizeTitle strips numbering and case so "### B. Fees" matches "fees"
func normalizeTitle(title string) string {
	t := strings.TrimSpace(title)
	t = strings.TrimPrefix(t, "Section ")
	t = numberingPrefix.ReplaceAllString(t, "")
	t = strings.Trim(t, "*_ ")
	return strings.ToLower(strings.Join(strings.Fields(t), " "))
}

func slug(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}
