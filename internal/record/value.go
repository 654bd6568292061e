// Package record defines the scene record types exchanged between the
// analysis stages and the fusion engine: a closed tagged-variant field
// value, per-stage partial records, and the fused canonical record.
package record

import (
	"encoding/json"
	"fmt"
)

// Kind tags a Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is a closed union over the shapes a scene field may take:
// a scalar (string, number or bool), a list of values, or a keyed
// object. The merge policy dispatches on the Kind tag rather than on
// runtime inspection of arbitrary payloads.
type Value struct {
	kind   Kind
	scalar any // string, float64 or bool when kind == KindScalar
	list   []Value
	object map[string]Value
}

// Null is the absent value.
var Null = Value{}

// String wraps a string scalar.
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Number wraps a numeric scalar.
func Number(f float64) Value { return Value{kind: KindScalar, scalar: f} }

// Bool wraps a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindScalar, scalar: b} }

// List wraps a list of values.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Object wraps a keyed object.
func Object(fields map[string]Value) Value { return Value{kind: KindObject, object: fields} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Scalar returns the scalar payload, or nil for non-scalar values.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Float returns the numeric payload and whether the value is a number.
func (v Value) Float() (float64, bool) {
	f, ok := v.scalar.(float64)
	return f, ok
}

// Str returns the string payload and whether the value is a string.
func (v Value) Str() (string, bool) {
	s, ok := v.scalar.(string)
	return s, ok
}

// Items returns the list payload, or nil for non-list values.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Fields returns the object payload, or nil for non-object values.
func (v Value) Fields() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	return v.object
}

// Field returns the named key of an object value.
func (v Value) Field(name string) Value {
	if v.kind != KindObject {
		return Null
	}
	return v.object[name]
}

// Equal reports deep equality between two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindScalar:
		return v.scalar == o.scalar
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.object) != len(o.object) {
			return false
		}
		for k, vv := range v.object {
			ov, ok := o.object[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts a JSON-decoded value (map[string]any, []any,
// float64, string, bool, nil) into a Value. Integer types are widened
// to float64.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, it := range t {
			v, err := FromAny(it)
			if err != nil {
				return Null, err
			}
			items = append(items, v)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, it := range t {
			v, err := FromAny(it)
			if err != nil {
				return Null, err
			}
			fields[k] = v
		}
		return Object(fields), nil
	default:
		return Null, fmt.Errorf("unsupported field value type %T", raw)
	}
}

// ToAny converts a Value back into the natural JSON representation.
func (v Value) ToAny() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindList:
		out := make([]any, len(v.list))
		for i, it := range v.list {
			out[i] = it.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.object))
		for k, it := range v.object {
			out[k] = it.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON emits the natural JSON form of the value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes any JSON value into the union.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}
