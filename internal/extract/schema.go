package extract

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// Field is one extractable value in the schema
type Field struct {
	Group string
	Name  string
	Type  string // integer, number, boolean, string
}

// groupTypes maps each field group to its struct type
var groupTypes = map[string]reflect.Type{
	model.GroupOccupancy:         reflect.TypeOf(model.OccupancyRules{}),
	model.GroupDefinitions:       reflect.TypeOf(model.DefinitionRules{}),
	model.GroupZoning:            reflect.TypeOf(model.ZoningRules{}),
	model.GroupLocalRequirements: reflect.TypeOf(model.LocalRequirementRules{}),
}

// Fields derives the extraction schema from the record's field groups
func Fields() []Field {
	var fields []Field
	for _, group := range model.GroupNames {
		t := groupTypes[group]
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("json"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			fields = append(fields, Field{Group: group, Name: name, Type: jsonType(f.Type)})
		}
	}
	return fields
}

// RenderSchema renders the JSON shape the extractor must return
func RenderSchema() string {
	var b strings.Builder
	b.WriteString("{\n")

	fields := Fields()
	for gi, group := range model.GroupNames {
		fmt.Fprintf(&b, "  %q: {\n", group)
		var members []string
		for _, f := range fields {
			if f.Group == group {
				members = append(members, fmt.Sprintf("    %q: %s or null", f.Name, f.Type))
			}
		}
		b.WriteString(strings.Join(members, ",\n"))
		b.WriteString("\n  }")
		if gi < len(model.GroupNames)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	b.WriteString(`  "interpretive_summary": string,` + "\n")
	fmt.Fprintf(&b, "  \"status\": one of %s,\n", strings.Join(quoted(statusValues()), ", "))
	b.WriteString(`  "confidence": number from 0 to 100` + "\n")
	b.WriteString("}")
	return b.String()
}

func statusValues() []string {
	return []string{
		string(model.StatusPermitted),
		string(model.StatusPermittedWithConditions),
		string(model.StatusNotPermitted),
		string(model.StatusUnclear),
		string(model.StatusNeedsResearch),
	}
}

func quoted(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}

func jsonType(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "string"
	}
}
