package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Confidence is a per-field confidence that a stage may supply either
// as a single number for the whole field or as a per-item map (for
// character lists, keyed by character name). When both are present the
// map form takes precedence.
type Confidence struct {
	Scalar  *float64
	PerItem map[string]float64

	// Malformed is set when the decoded value was neither a number nor
	// a map. MalformedItems lists map entries whose values were not
	// numeric. Decoding tolerates both so fusion can record a
	// scene-scoped diagnostic instead of the whole document failing.
	Malformed      bool
	MalformedItems []string
}

// ScalarConfidence wraps a plain numeric confidence.
func ScalarConfidence(v float64) Confidence {
	return Confidence{Scalar: &v}
}

// ItemConfidence wraps a per-item confidence map.
func ItemConfidence(m map[string]float64) Confidence {
	return Confidence{PerItem: m}
}

// For resolves the confidence for one named item: the per-item map
// wins when it has an entry, the scalar applies to every item when
// only a number was given.
func (c Confidence) For(name string) (float64, bool) {
	if c.PerItem != nil {
		if v, ok := c.PerItem[name]; ok {
			return v, true
		}
	}
	if c.Scalar != nil {
		return *c.Scalar, true
	}
	return 0, false
}

// Value returns the field-level scalar confidence when one was given.
func (c Confidence) Value() (float64, bool) {
	if c.Scalar != nil {
		return *c.Scalar, true
	}
	return 0, false
}

// MarshalJSON emits the scalar form when available, else the map form.
func (c Confidence) MarshalJSON() ([]byte, error) {
	if c.PerItem != nil {
		return json.Marshal(c.PerItem)
	}
	if c.Scalar != nil {
		return json.Marshal(*c.Scalar)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts either a number or an object of numbers.
// Non-numeric values are marked malformed rather than rejected, so one
// bad entry in a partials file never fails the whole document.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*c = Confidence{}
		return nil
	case float64:
		*c = ScalarConfidence(t)
		return nil
	case map[string]any:
		m := make(map[string]float64, len(t))
		var bad []string
		for k, v := range t {
			f, ok := v.(float64)
			if !ok {
				bad = append(bad, k)
				continue
			}
			m[k] = f
		}
		sort.Strings(bad)
		*c = Confidence{PerItem: m, MalformedItems: bad}
		return nil
	default:
		*c = Confidence{Malformed: true}
		return nil
	}
}

// Partial is one analysis stage's proposed values for a scene. Stages
// may omit any field; confidences and provenance are optional. A
// Partial is owned by its producing stage; the fusion engine only
// reads it.
type Partial struct {
	SceneID     string                `json:"scene_id"`
	Stage       string                `json:"stage"`
	Fields      map[string]Value      `json:"fields"`
	Confidences map[string]Confidence `json:"field_confidences,omitempty"`
	Provenance  map[string][]string   `json:"field_provenance,omitempty"`
}

// Confidence returns the confidence supplied for a field, if any.
func (p *Partial) Confidence(field string) (Confidence, bool) {
	c, ok := p.Confidences[field]
	return c, ok
}

// DominanceEntry ranks one character by normalized screen time.
type DominanceEntry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Canonical is the single fused, schema-complete record for a scene.
// Built once by the fusion engine and read-only afterwards.
type Canonical struct {
	SceneID            string
	Fields             map[string]Value
	FieldConfidences   map[string]float64
	FieldProvenance    map[string][]string
	CharacterDominance []DominanceEntry
}

// MarshalJSON flattens the canonical fields to top-level keys next to
// the bookkeeping maps, matching the per-scene output document shape.
func (c *Canonical) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+4)
	out["scene_id"] = c.SceneID
	for name, v := range c.Fields {
		out[name] = v.ToAny()
	}
	out["field_confidences"] = c.FieldConfidences
	out["field_provenance"] = c.FieldProvenance

	ranking := make([]any, len(c.CharacterDominance))
	for i, e := range c.CharacterDominance {
		ranking[i] = map[string]any{"name": e.Name, "score": e.Score}
	}
	out["character_dominance_ranking"] = ranking

	return json.Marshal(out)
}

// UnmarshalJSON reverses the flattened canonical form.
func (c *Canonical) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Fields = make(map[string]Value)
	c.FieldConfidences = make(map[string]float64)
	c.FieldProvenance = make(map[string][]string)
	c.CharacterDominance = nil

	for key, msg := range raw {
		switch key {
		case "scene_id":
			if err := json.Unmarshal(msg, &c.SceneID); err != nil {
				return err
			}
		case "field_confidences":
			if err := json.Unmarshal(msg, &c.FieldConfidences); err != nil {
				return err
			}
		case "field_provenance":
			if err := json.Unmarshal(msg, &c.FieldProvenance); err != nil {
				return err
			}
		case "character_dominance_ranking":
			if err := json.Unmarshal(msg, &c.CharacterDominance); err != nil {
				return err
			}
		default:
			var v Value
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			c.Fields[key] = v
		}
	}
	return nil
}
