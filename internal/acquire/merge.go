package acquire

import (
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// Merge folds the values of src into dst. A non-null value in src overwrites dst;
// a null value in src never clears a populated field of dst. Source URLs and
// search terms are appended without duplicates.
func Merge(dst, src *model.KnowledgeRecord) {
	if dst == nil || src == nil {
		return
	}

	dst.Occupancy = mergeOccupancy(dst.Occupancy, src.Occupancy)
	dst.Definitions = mergeDefinitions(dst.Definitions, src.Definitions)
	dst.Zoning = mergeZoning(dst.Zoning, src.Zoning)
	dst.LocalRequirements = mergeLocalRequirements(dst.LocalRequirements, src.LocalRequirements)

	if strings.TrimSpace(src.InterpretiveSummary) != "" {
		dst.InterpretiveSummary = src.InterpretiveSummary
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if strings.TrimSpace(src.Provenance.RawText) != "" {
		dst.Provenance.RawText = src.Provenance.RawText
	}
	if src.ConfidenceScore != nil {
		v := *src.ConfidenceScore
		dst.ConfidenceScore = &v
	}

	dst.Provenance.SourceURLs = appendUnique(dst.Provenance.SourceURLs, src.Provenance.SourceURLs...)
	dst.Provenance.SearchTerms = appendUnique(dst.Provenance.SearchTerms, src.Provenance.SearchTerms...)
}

// pick returns next when it holds a value, otherwise prev
func pick[T any](prev, next *T) *T {
	if next != nil {
		v := *next
		return &v
	}
	return prev
}

// pickText treats empty strings as null
func pickText(prev, next *string) *string {
	if next != nil && strings.TrimSpace(*next) != "" {
		v := *next
		return &v
	}
	return prev
}

func mergeOccupancy(prev, next *model.OccupancyRules) *model.OccupancyRules {
	if !next.Populated() {
		return prev
	}
	out := &model.OccupancyRules{}
	if prev != nil {
		*out = *prev
	}
	out.MaxOccupants = pick(out.MaxOccupants, next.MaxOccupants)
	out.MinStayNights = pick(out.MinStayNights, next.MinStayNights)
	out.OwnerOccupancyRequired = pick(out.OwnerOccupancyRequired, next.OwnerOccupancyRequired)
	out.Section = pickText(out.Section, next.Section)
	out.RawText = pickText(out.RawText, next.RawText)
	return out
}

func mergeDefinitions(prev, next *model.DefinitionRules) *model.DefinitionRules {
	if !next.Populated() {
		return prev
	}
	out := &model.DefinitionRules{}
	if prev != nil {
		*out = *prev
	}
	out.DefinedTerm = pickText(out.DefinedTerm, next.DefinedTerm)
	out.DefinitionText = pickText(out.DefinitionText, next.DefinitionText)
	out.Section = pickText(out.Section, next.Section)
	out.RawText = pickText(out.RawText, next.RawText)
	return out
}

func mergeZoning(prev, next *model.ZoningRules) *model.ZoningRules {
	if !next.Populated() {
		return prev
	}
	out := &model.ZoningRules{}
	if prev != nil {
		*out = *prev
	}
	out.PermittedZones = pickText(out.PermittedZones, next.PermittedZones)
	out.ConditionalUseRequired = pick(out.ConditionalUseRequired, next.ConditionalUseRequired)
	out.MaxUnitsPerParcel = pick(out.MaxUnitsPerParcel, next.MaxUnitsPerParcel)
	out.Section = pickText(out.Section, next.Section)
	out.RawText = pickText(out.RawText, next.RawText)
	return out
}

func mergeLocalRequirements(prev, next *model.LocalRequirementRules) *model.LocalRequirementRules {
	if !next.Populated() {
		return prev
	}
	out := &model.LocalRequirementRules{}
	if prev != nil {
		*out = *prev
	}
	out.PermitRequired = pick(out.PermitRequired, next.PermitRequired)
	out.PermitFee = pick(out.PermitFee, next.PermitFee)
	out.RegistrationRequired = pick(out.RegistrationRequired, next.RegistrationRequired)
	out.InspectionRequired = pick(out.InspectionRequired, next.InspectionRequired)
	out.Section = pickText(out.Section, next.Section)
	out.RawText = pickText(out.RawText, next.RawText)
	return out
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst)+len(values))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}
