package schema

import (
	"fmt"

	"github.com/pallavi-MMM/movie-indexing/internal/record"
)

// Violation describes one failed schema check. Violations are pure
// data; whether they are fatal is the caller's decision (strict mode).
type Violation struct {
	// Path is the field location in dot notation (e.g. "rating_flags.violence").
	Path string `json:"path"`
	// Constraint names the expectation that failed.
	Constraint string `json:"constraint"`
	// Actual describes the offending value.
	Actual string `json:"actual"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (got %s)", v.Path, v.Constraint, v.Actual)
}

// Validate checks a canonical record against the schema and returns
// every violation found. Lenient callers report the list and keep the
// record; strict callers treat a non-empty list as fatal for the
// scene. Strictness is the caller's flag, not the validator's.
func (s *Schema) Validate(rec *record.Canonical) []Violation {
	var out []Violation

	for _, name := range s.FieldNames() {
		f := s.Fields[name]
		v, present := rec.Fields[name]

		if !present {
			if f.Required {
				out = append(out, Violation{
					Path:       name,
					Constraint: "required field missing",
					Actual:     "absent",
				})
			}
			continue
		}
		out = append(out, checkValue(name, f, v)...)
	}

	for name, conf := range rec.FieldConfidences {
		if conf < 0 || conf > 1 {
			out = append(out, Violation{
				Path:       "field_confidences." + name,
				Constraint: "confidence in [0,1]",
				Actual:     fmt.Sprintf("%v", conf),
			})
		}
	}

	for name, stages := range rec.FieldProvenance {
		for i, stage := range stages {
			if stage == "" {
				out = append(out, Violation{
					Path:       fmt.Sprintf("field_provenance.%s[%d]", name, i),
					Constraint: "non-empty stage name",
					Actual:     "empty string",
				})
			}
		}
	}

	return out
}

// ValidatePartial checks one stage's partial record fields against the
// schema. Unknown fields are reported; bookkeeping maps are not
// checked since partials carry them in stage-local form.
func (s *Schema) ValidatePartial(p *record.Partial) []Violation {
	var out []Violation
	for name, v := range p.Fields {
		f, ok := s.Fields[name]
		if !ok {
			out = append(out, Violation{
				Path:       name,
				Constraint: "field declared in schema",
				Actual:     "undeclared field",
			})
			continue
		}
		out = append(out, checkValue(name, f, v)...)
	}
	return out
}

func checkValue(path string, f *Field, v record.Value) []Violation {
	var out []Violation

	if v.IsNull() {
		return nil
	}

	if !f.Matches(v) {
		return []Violation{{
			Path:       path,
			Constraint: fmt.Sprintf("type %s", f.Type),
			Actual:     v.Kind().String(),
		}}
	}

	switch f.Type {
	case TypeNumber:
		n, _ := v.Float()
		if f.Min != nil && n < *f.Min {
			out = append(out, Violation{
				Path:       path,
				Constraint: fmt.Sprintf("minimum %v", *f.Min),
				Actual:     fmt.Sprintf("%v", n),
			})
		}
		if f.Max != nil && n > *f.Max {
			out = append(out, Violation{
				Path:       path,
				Constraint: fmt.Sprintf("maximum %v", *f.Max),
				Actual:     fmt.Sprintf("%v", n),
			})
		}

	case TypeString:
		if len(f.Enum) > 0 {
			s, _ := v.Str()
			// The empty string is what DefaultValue fills in for an
			// absent enum field without a declared default; it is
			// accepted as "unknown" rather than forced into the enum.
			if s != "" && !contains(f.Enum, s) {
				out = append(out, Violation{
					Path:       path,
					Constraint: fmt.Sprintf("one of %v", f.Enum),
					Actual:     fmt.Sprintf("%q", s),
				})
			}
		}

	case TypeArray:
		if f.Items != nil {
			for i, item := range v.Items() {
				itemPath := fmt.Sprintf("%s[%d]", path, i)
				if f.Items.Type == TypeObject && len(f.Items.Properties) > 0 {
					for key, sub := range f.Items.Properties {
						if fv := item.Field(key); !fv.IsNull() {
							out = append(out, checkValue(itemPath+"."+key, sub, fv)...)
						}
					}
					continue
				}
				out = append(out, checkValue(itemPath, f.Items, item)...)
			}
		}

	case TypeObject:
		for key, fv := range v.Fields() {
			if sub, ok := f.Properties[key]; ok {
				out = append(out, checkValue(path+"."+key, sub, fv)...)
				continue
			}
			// Extra keys must conform to the declared value type; a
			// mismatch is a violation, not silently accepted.
			if f.AdditionalProperties != nil {
				out = append(out, checkValue(path+"."+key, f.AdditionalProperties, fv)...)
			}
		}
	}

	return out
}

func contains(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}
