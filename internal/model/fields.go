package model

// FieldGroup is one topical group of nullable facts on a KnowledgeRecord
type FieldGroup interface {
	// Populated reports whether any field in the group holds a value
	Populated() bool
}

// Field group names, used as completeness keys and in the extraction schema
const (
	GroupOccupancy         = "occupancy"
	GroupDefinitions       = "definitions"
	GroupZoning            = "zoning"
	GroupLocalRequirements = "local_requirements"
)

// GroupNames lists the field groups in their canonical order
var GroupNames = []string{GroupOccupancy, GroupDefinitions, GroupZoning, GroupLocalRequirements}

// NamedGroup pairs a group name with its value; Group is nil when the record lacks it
type NamedGroup struct {
	Name  string
	Group FieldGroup
}

// Groups returns every field group of the record in canonical order.
// A nil group pointer is returned as a nil interface.
func (r *KnowledgeRecord) Groups() []NamedGroup {
	groups := make([]NamedGroup, 0, len(GroupNames))
	add := func(name string, present bool, g FieldGroup) {
		if !present {
			g = nil
		}
		groups = append(groups, NamedGroup{Name: name, Group: g})
	}
	add(GroupOccupancy, r.Occupancy != nil, r.Occupancy)
	add(GroupDefinitions, r.Definitions != nil, r.Definitions)
	add(GroupZoning, r.Zoning != nil, r.Zoning)
	add(GroupLocalRequirements, r.LocalRequirements != nil, r.LocalRequirements)
	return groups
}

// OccupancyRules covers who may stay and for how long
type OccupancyRules struct {
	MaxOccupants           *int    `json:"max_occupants,omitempty"`
	MinStayNights          *int    `json:"min_stay_nights,omitempty"`
	OwnerOccupancyRequired *bool   `json:"owner_occupancy_required,omitempty"`
	Section                *string `json:"section,omitempty"`
	RawText                *string `json:"raw_text,omitempty"`
}

// Populated implements FieldGroup
func (g *OccupancyRules) Populated() bool {
	return g != nil && anySet(g.MaxOccupants != nil, g.MinStayNights != nil, g.OwnerOccupancyRequired != nil,
		hasText(g.Section), hasText(g.RawText))
}

// DefinitionRules covers how the code defines the regulated use
type DefinitionRules struct {
	DefinedTerm    *string `json:"defined_term,omitempty"`
	DefinitionText *string `json:"definition_text,omitempty"`
	Section        *string `json:"section,omitempty"`
	RawText        *string `json:"raw_text,omitempty"`
}

// Populated implements FieldGroup
func (g *DefinitionRules) Populated() bool {
	return g != nil && anySet(hasText(g.DefinedTerm), hasText(g.DefinitionText), hasText(g.Section), hasText(g.RawText))
}

// ZoningRules covers where the use is allowed
type ZoningRules struct {
	PermittedZones         *string `json:"permitted_zones,omitempty"`
	ConditionalUseRequired *bool   `json:"conditional_use_required,omitempty"`
	MaxUnitsPerParcel      *int    `json:"max_units_per_parcel,omitempty"`
	Section                *string `json:"section,omitempty"`
	RawText                *string `json:"raw_text,omitempty"`
}

// Populated implements FieldGroup
func (g *ZoningRules) Populated() bool {
	return g != nil && anySet(hasText(g.PermittedZones), g.ConditionalUseRequired != nil, g.MaxUnitsPerParcel != nil,
		hasText(g.Section), hasText(g.RawText))
}

// LocalRequirementRules covers permits, fees, registration and inspections
type LocalRequirementRules struct {
	PermitRequired       *bool    `json:"permit_required,omitempty"`
	PermitFee            *float64 `json:"permit_fee,omitempty"`
	RegistrationRequired *bool    `json:"registration_required,omitempty"`
	InspectionRequired   *bool    `json:"inspection_required,omitempty"`
	Section              *string  `json:"section,omitempty"`
	RawText              *string  `json:"raw_text,omitempty"`
}

// Populated implements FieldGroup
func (g *LocalRequirementRules) Populated() bool {
	return g != nil && anySet(g.PermitRequired != nil, g.PermitFee != nil, g.RegistrationRequired != nil,
		g.InspectionRequired != nil, hasText(g.Section), hasText(g.RawText))
}

func anySet(flags ...bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}

func hasText(s *string) bool {
	return s != nil && *s != ""
}

// String, Int, Bool and Float return pointers to literals; handy when building records
func String(s string) *string { return &s }
func Int(i int) *int { return &i }
func Bool(b bool) *bool { return &b }
func Float(f float64) *float64 { return &f }
