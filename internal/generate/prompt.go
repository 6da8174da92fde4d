package generate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/validate"
)

// SystemPrompt is the style instruction sent with every generation call
const SystemPrompt = `You write long-form short-term rental compliance guides for property owners.
Write in clear, neutral, factual markdown. Use only the facts provided; when a fact is unknown,
say that the local code should be consulted instead of guessing. Cite code sections where given
and reference the source URLs. Never leave placeholders or bracketed instructions in the text.`

// RenderPrompt expands the record's fields into the user-content payload.
// The output is deterministic for a given record and outline.
func RenderPrompt(r *model.KnowledgeRecord, outline validate.Outline, minWords int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a compliance guide for short-term rentals in %s.\n\n", r.Jurisdiction.Display())

	b.WriteString("## Required structure\n")
	b.WriteString("Use exactly these headings (## for sections, ### for subsections):\n")
	for _, s := range outline {
		fmt.Fprintf(&b, "%d. %s\n", s.Number, s.Title)
		for i, sub := range s.Subsections {
			fmt.Fprintf(&b, "   %c. %s\n", 'A'+i, sub)
		}
	}
	if minWords > 0 {
		fmt.Fprintf(&b, "\nThe guide must be at least %d words.\n", minWords)
	}

	b.WriteString("\n## Known facts\n")
	if r.Status != "" {
		fmt.Fprintf(&b, "- Regulatory status: %s\n", strings.ReplaceAll(string(r.Status), "_", " "))
	}
	if s := strings.TrimSpace(r.InterpretiveSummary); s != "" {
		fmt.Fprintf(&b, "- Summary: %s\n", s)
	}

	if g := r.Occupancy; g.Populated() {
		b.WriteString("\n### Occupancy\n")
		line(&b, "Maximum occupants", intText(g.MaxOccupants))
		line(&b, "Minimum stay (nights)", intText(g.MinStayNights))
		line(&b, "Owner occupancy required", boolText(g.OwnerOccupancyRequired))
		line(&b, "Code section", text(g.Section))
		quote(&b, g.RawText)
	}
	if g := r.Definitions; g.Populated() {
		b.WriteString("\n### Definitions\n")
		line(&b, "Defined term", text(g.DefinedTerm))
		line(&b, "Definition", text(g.DefinitionText))
		line(&b, "Code section", text(g.Section))
		quote(&b, g.RawText)
	}
	if g := r.Zoning; g.Populated() {
		b.WriteString("\n### Zoning\n")
		line(&b, "Permitted zones", text(g.PermittedZones))
		line(&b, "Conditional use permit required", boolText(g.ConditionalUseRequired))
		line(&b, "Maximum units per parcel", intText(g.MaxUnitsPerParcel))
		line(&b, "Code section", text(g.Section))
		quote(&b, g.RawText)
	}
	if g := r.LocalRequirements; g.Populated() {
		b.WriteString("\n### Local requirements\n")
		line(&b, "Permit required", boolText(g.PermitRequired))
		if g.PermitFee != nil {
			line(&b, "Permit fee", "$"+strconv.FormatFloat(*g.PermitFee, 'f', 2, 64))
		}
		line(&b, "Registration required", boolText(g.RegistrationRequired))
		line(&b, "Inspection required", boolText(g.InspectionRequired))
		line(&b, "Code section", text(g.Section))
		quote(&b, g.RawText)
	}

	if len(r.Provenance.SourceURLs) > 0 {
		b.WriteString("\n## Sources\n")
		for _, u := range r.Provenance.SourceURLs {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
}

func quote(b *strings.Builder, s *string) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return
	}
	fmt.Fprintf(b, "> %s\n", strings.Join(strings.Fields(*s), " "))
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func intText(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func boolText(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "yes"
	}
	return "no"
}
