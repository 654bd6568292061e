// Package schema holds the declarative scene-record schema and the
// validator that checks canonical records against it.
package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/pallavi-MMM/movie-indexing/internal/record"
	"gopkg.in/yaml.v3"
)

// FieldType enumerates the declarable field types.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field declares the constraints for one schema field.
type Field struct {
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	Min      *float64  `yaml:"min"`
	Max      *float64  `yaml:"max"`
	Enum     []string  `yaml:"enum"`
	Default  any       `yaml:"default"`
	// Items constrains the elements of an array field.
	Items *Field `yaml:"items"`
	// AdditionalProperties constrains the values of keys not otherwise
	// declared on an object field.
	AdditionalProperties *Field `yaml:"additionalProperties"`
	// Properties declares known keys of an object field or of array
	// items that are objects.
	Properties map[string]*Field `yaml:"properties"`
}

// Schema is the full declarative scene schema. Loaded once at process
// start and treated as read-only for the lifetime of a run, so it may
// be shared across concurrent fusion calls without locking.
type Schema struct {
	Fields map[string]*Field `yaml:"fields"`
}

// Load reads a schema document (YAML; JSON parses as a YAML subset).
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes a schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("schema declares no fields")
	}
	return &s, nil
}

// FieldNames returns the declared field names in deterministic order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultValue returns the declared default for a field, or a
// type-appropriate empty value when no default is declared. Used by
// fusion when zero partial records supplied the field.
func (s *Schema) DefaultValue(name string) record.Value {
	f, ok := s.Fields[name]
	if !ok {
		return record.Null
	}
	if f.Default != nil {
		if v, err := record.FromAny(f.Default); err == nil {
			return v
		}
	}
	switch f.Type {
	case TypeString:
		return record.String("")
	case TypeNumber:
		return record.Number(0)
	case TypeBoolean:
		return record.Bool(false)
	case TypeArray:
		return record.List()
	case TypeObject:
		return record.Object(map[string]record.Value{})
	default:
		return record.Null
	}
}

// Matches reports whether a value conforms to the declared type tag.
// Null values are accepted everywhere; absence is checked separately.
func (f *Field) Matches(v record.Value) bool {
	return matchesType(f.Type, v)
}

func matchesType(t FieldType, v record.Value) bool {
	if v.IsNull() {
		return true
	}
	switch t {
	case TypeString:
		_, ok := v.Str()
		return ok
	case TypeNumber:
		_, ok := v.Float()
		return ok
	case TypeBoolean:
		_, ok := v.Scalar().(bool)
		return ok
	case TypeArray:
		return v.Kind() == record.KindList
	case TypeObject:
		return v.Kind() == record.KindObject
	default:
		return true
	}
}
