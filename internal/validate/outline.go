package validate

// OutlineSection is a required top-level section and its required subsections
type OutlineSection struct {
	Number      int
	Title       string
	Subsections []string
}

// Outline is the fixed set of sections every generated document must contain
type Outline []OutlineSection

// DefaultOutline returns the compliance document outline
func DefaultOutline() Outline {
	return Outline{
		{Number: 1, Title: "Overview", Subsections: []string{"Jurisdiction Summary", "Regulatory Status"}},
		{Number: 2, Title: "Definitions", Subsections: []string{"Key Terms"}},
		{Number: 3, Title: "Zoning Requirements", Subsections: []string{"Permitted Zones", "Conditional Use"}},
		{Number: 4, Title: "Occupancy Standards", Subsections: []string{"Occupancy Limits", "Minimum Stay"}},
		{Number: 5, Title: "Permits and Registration", Subsections: []string{"Permit Requirements", "Fees", "Inspections"}},
		{Number: 6, Title: "Compliance Checklist"},
		{Number: 7, Title: "Sources and Citations"},
	}
}

// Titles flattens the outline into every required title, sections before their subsections
func (o Outline) Titles() []string {
	var out []string
	for _, s := range o {
		out = append(out, s.Title)
		out = append(out, s.Subsections...)
	}
	return out
}
