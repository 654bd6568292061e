// Package fuse merges per-stage partial scene records into one
// canonical, schema-complete record with per-field confidence and
// provenance.
package fuse

import (
	"fmt"
	"math"
	"sort"

	"github.com/pallavi-MMM/movie-indexing/internal/record"
	"github.com/pallavi-MMM/movie-indexing/internal/schema"
	"github.com/rs/zerolog"
)

// Diagnostic is a non-fatal fusion issue: a contributor whose value or
// confidence failed expectations and was dropped or defaulted. Fusion
// continues for the scene.
type Diagnostic struct {
	SceneID string `json:"scene_id"`
	Field   string `json:"field"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s/%s from %s: %s", d.SceneID, d.Field, d.Stage, d.Reason)
}

// Options configures the fusion engine.
type Options struct {
	// DefaultConfidence is assumed for contributions without an
	// explicit confidence, so explicitly-confident contributors can
	// outrank them.
	DefaultConfidence float64
}

// DefaultOptions returns the standard fusion parameters.
func DefaultOptions() Options {
	return Options{DefaultConfidence: 0.5}
}

// Engine fuses partial records. Stateless between calls: fusing
// different scenes concurrently is safe, as is sharing one Engine.
type Engine struct {
	logger      zerolog.Logger
	defaultConf float64
}

// NewEngine creates a fusion engine.
func NewEngine(logger zerolog.Logger, opts Options) *Engine {
	if opts.DefaultConfidence <= 0 {
		opts.DefaultConfidence = DefaultOptions().DefaultConfidence
	}
	return &Engine{
		logger:      logger.With().Str("component", "fusion").Logger(),
		defaultConf: opts.DefaultConfidence,
	}
}

// contribution is one stage's candidate value for a field, with its
// resolved confidence and provenance labels.
type contribution struct {
	value      record.Value
	conf       float64
	confidence record.Confidence
	stage      string
	labels     []string
	order      int
}

// Fuse merges the partial records for one scene into a canonical
// record. The input order matters only as a tie-break: later records
// win confidence ties. Inputs are never mutated. Every schema-declared
// field is present in the result, falling back to the schema default
// with confidence 0 when no valid contributor remains.
func (e *Engine) Fuse(sceneID string, s *schema.Schema, partials []record.Partial) (*record.Canonical, []Diagnostic) {
	out := &record.Canonical{
		SceneID:          sceneID,
		Fields:           make(map[string]record.Value, len(s.Fields)),
		FieldConfidences: make(map[string]float64, len(s.Fields)),
		FieldProvenance:  make(map[string][]string, len(s.Fields)),
	}
	var diags []Diagnostic

	var mergedChars []charEntry

	for _, name := range s.FieldNames() {
		f := s.Fields[name]

		contribs, fieldDiags := e.gather(sceneID, name, f, partials)
		diags = append(diags, fieldDiags...)

		if len(contribs) == 0 {
			out.Fields[name] = s.DefaultValue(name)
			out.FieldConfidences[name] = 0
			out.FieldProvenance[name] = []string{}
			continue
		}

		provenance := provenanceOf(contribs)

		switch {
		case isCharacterList(f):
			chars, conf, charDiags := e.mergeCharacters(sceneID, name, contribs)
			diags = append(diags, charDiags...)
			out.Fields[name] = charactersValue(chars)
			out.FieldConfidences[name] = conf
			out.FieldProvenance[name] = provenance
			if name == "characters" {
				mergedChars = chars
			}

		case f.Type == schema.TypeArray:
			value, conf := mergeList(contribs)
			out.Fields[name] = value
			out.FieldConfidences[name] = conf
			out.FieldProvenance[name] = provenance

		case f.Type == schema.TypeObject:
			value, conf := e.mergeObject(contribs)
			out.Fields[name] = value
			out.FieldConfidences[name] = conf
			out.FieldProvenance[name] = provenance

		default:
			best := selectScalar(contribs)
			out.Fields[name] = best.value
			out.FieldConfidences[name] = best.conf
			out.FieldProvenance[name] = provenance
		}
	}

	out.CharacterDominance = dominanceRanking(mergedChars, sceneDuration(out))

	if len(diags) > 0 {
		e.logger.Warn().
			Str("scene_id", sceneID).
			Int("diagnostics", len(diags)).
			Msg("fusion completed with dropped contributions")
	}
	return out, diags
}

// gather collects the valid contributions for one field, in input
// order, dropping wrong-typed values and defaulting malformed
// confidences.
func (e *Engine) gather(sceneID, name string, f *schema.Field, partials []record.Partial) ([]contribution, []Diagnostic) {
	var out []contribution
	var diags []Diagnostic

	for i := range partials {
		p := &partials[i]
		v, ok := p.Fields[name]
		if !ok || v.IsNull() {
			continue
		}

		if !f.Matches(v) {
			diags = append(diags, Diagnostic{
				SceneID: sceneID,
				Field:   name,
				Stage:   p.Stage,
				Reason:  fmt.Sprintf("value kind %s does not match declared type %s", v.Kind(), f.Type),
			})
			continue
		}

		c := contribution{
			value: v,
			conf:  e.defaultConf,
			stage: p.Stage,
			order: i,
		}
		if rc, has := p.Confidence(name); has {
			clean, confDiags := checkConfidence(sceneID, name, p.Stage, rc)
			diags = append(diags, confDiags...)
			c.confidence = clean
			if cv, isScalar := clean.Value(); isScalar {
				c.conf = cv
			}
		}

		if labels, has := p.Provenance[name]; has && len(labels) > 0 {
			c.labels = labels
		} else {
			c.labels = []string{p.Stage}
		}

		out = append(out, c)
	}
	return out, diags
}

// checkConfidence validates a supplied confidence and returns a copy
// with malformed or out-of-range entries removed, so the affected
// contributor falls back to the default instead of carrying an invalid
// confidence into the canonical record. Both the field-level scalar
// and every per-item map entry are checked. The input is not mutated.
func checkConfidence(sceneID, field, stage string, rc record.Confidence) (record.Confidence, []Diagnostic) {
	var diags []Diagnostic
	reject := func(reason string) {
		diags = append(diags, Diagnostic{
			SceneID: sceneID,
			Field:   field,
			Stage:   stage,
			Reason:  reason,
		})
	}

	if rc.Malformed {
		reject("confidence is not numeric, using default")
	}
	for _, item := range rc.MalformedItems {
		reject(fmt.Sprintf("confidence for %q is not numeric, using default", item))
	}

	clean := record.Confidence{Scalar: rc.Scalar}
	if rc.Scalar != nil {
		if cv := *rc.Scalar; cv < 0 || cv > 1 || math.IsNaN(cv) {
			reject(fmt.Sprintf("confidence %v outside [0,1], using default", cv))
			clean.Scalar = nil
		}
	}
	if rc.PerItem != nil {
		items := make(map[string]float64, len(rc.PerItem))
		var bad []string
		for item, cv := range rc.PerItem {
			if cv < 0 || cv > 1 || math.IsNaN(cv) {
				bad = append(bad, item)
				continue
			}
			items[item] = cv
		}
		sort.Strings(bad)
		for _, item := range bad {
			reject(fmt.Sprintf("confidence %v for %q outside [0,1], using default", rc.PerItem[item], item))
		}
		clean.PerItem = items
	}
	return clean, diags
}

// selectScalar picks the highest-confidence contribution; on ties the
// later record in the input order wins.
func selectScalar(contribs []contribution) contribution {
	best := contribs[0]
	for _, c := range contribs[1:] {
		if c.conf >= best.conf {
			best = c
		}
	}
	return best
}

// mergeList unions the contributed list values, de-duplicated, with
// first-seen order preserved across records. The recorded confidence
// is the highest among contributors.
func mergeList(contribs []contribution) (record.Value, float64) {
	var items []record.Value
	conf := 0.0
	for _, c := range contribs {
		if c.conf > conf {
			conf = c.conf
		}
		for _, item := range c.value.Items() {
			dup := false
			for _, seen := range items {
				if seen.Equal(item) {
					dup = true
					break
				}
			}
			if !dup {
				items = append(items, item)
			}
		}
	}
	return record.List(items...), conf
}

// mergeObject applies the scalar policy per key, recursing into nested
// objects. Each key inherits its contributor's field-level confidence.
func (e *Engine) mergeObject(contribs []contribution) (record.Value, float64) {
	var keys []string
	perKey := make(map[string][]contribution)

	for _, c := range contribs {
		for key, v := range c.value.Fields() {
			if v.IsNull() {
				continue
			}
			if _, seen := perKey[key]; !seen {
				keys = append(keys, key)
			}
			perKey[key] = append(perKey[key], contribution{
				value: v,
				conf:  c.conf,
				stage: c.stage,
				order: c.order,
			})
		}
	}
	sort.Strings(keys)

	merged := make(map[string]record.Value, len(keys))
	conf := 0.0
	for _, key := range keys {
		kc := perKey[key]
		sort.SliceStable(kc, func(i, j int) bool { return kc[i].order < kc[j].order })

		if allObjects(kc) {
			v, _ := e.mergeObject(kc)
			merged[key] = v
		} else {
			merged[key] = selectScalar(kc).value
		}
		if best := selectScalar(kc); best.conf > conf {
			conf = best.conf
		}
	}
	return record.Object(merged), conf
}

func allObjects(contribs []contribution) bool {
	for _, c := range contribs {
		if c.value.Kind() != record.KindObject {
			return false
		}
	}
	return true
}

// provenanceOf lists every stage that proposed any value for the
// field, oldest first, de-duplicated.
func provenanceOf(contribs []contribution) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range contribs {
		for _, label := range c.labels {
			if !seen[label] {
				seen[label] = true
				out = append(out, label)
			}
		}
	}
	return out
}

// isCharacterList reports whether a field is a character-style list:
// an array of named objects merged by identity rather than unioned.
func isCharacterList(f *schema.Field) bool {
	if f.Type != schema.TypeArray || f.Items == nil || f.Items.Type != schema.TypeObject {
		return false
	}
	_, ok := f.Items.Properties["name"]
	return ok
}

func sceneDuration(rec *record.Canonical) float64 {
	if v, ok := rec.Fields["duration"]; ok {
		if d, isNum := v.Float(); isNum && d > 0 {
			return d
		}
	}
	return 0
}
