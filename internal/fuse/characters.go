package fuse

import (
	"fmt"
	"sort"

	"github.com/pallavi-MMM/movie-indexing/internal/record"
)

// charEntry accumulates one merged character across contributing
// records. Attribute winners are tracked per attribute so each follows
// the scalar policy independently.
type charEntry struct {
	name       string
	screenTime float64
	attrs      map[string]record.Value
	attrConf   map[string]float64
	attrOrder  map[string]int
	conf       float64
	order      int
}

// mergeCharacters merges character lists by exact name. screen_time is
// summed across records (missing or non-numeric counts as 0); every
// other attribute follows the scalar policy using the per-item
// confidence when supplied, else the field-level confidence, else the
// default.
func (e *Engine) mergeCharacters(sceneID, field string, contribs []contribution) ([]charEntry, float64, []Diagnostic) {
	var order []string
	entries := make(map[string]*charEntry)
	var diags []Diagnostic
	fieldConf := 0.0

	for _, c := range contribs {
		for _, item := range c.value.Items() {
			if item.Kind() != record.KindObject {
				diags = append(diags, Diagnostic{
					SceneID: sceneID,
					Field:   field,
					Stage:   c.stage,
					Reason:  fmt.Sprintf("character entry is %s, expected object", item.Kind()),
				})
				continue
			}
			name, ok := item.Field("name").Str()
			if !ok || name == "" {
				diags = append(diags, Diagnostic{
					SceneID: sceneID,
					Field:   field,
					Stage:   c.stage,
					Reason:  "character entry has no name",
				})
				continue
			}

			itemConf := c.conf
			if v, has := c.confidence.For(name); has {
				itemConf = v
			}
			if itemConf > fieldConf {
				fieldConf = itemConf
			}

			entry, exists := entries[name]
			if !exists {
				entry = &charEntry{
					name:      name,
					attrs:     make(map[string]record.Value),
					attrConf:  make(map[string]float64),
					attrOrder: make(map[string]int),
					order:     len(order),
				}
				entries[name] = entry
				order = append(order, name)
			}
			if itemConf > entry.conf {
				entry.conf = itemConf
			}

			if st, isNum := item.Field("screen_time").Float(); isNum {
				entry.screenTime += st
			}

			for attr, v := range item.Fields() {
				if attr == "name" || attr == "screen_time" || v.IsNull() {
					continue
				}
				prevConf, has := entry.attrConf[attr]
				if !has || itemConf > prevConf ||
					(itemConf == prevConf && c.order >= entry.attrOrder[attr]) {
					entry.attrs[attr] = v
					entry.attrConf[attr] = itemConf
					entry.attrOrder[attr] = c.order
				}
			}
		}
	}

	out := make([]charEntry, 0, len(order))
	for _, name := range order {
		out = append(out, *entries[name])
	}
	return out, fieldConf, diags
}

// charactersValue renders merged characters back into a list value,
// preserving first-appearance order.
func charactersValue(chars []charEntry) record.Value {
	items := make([]record.Value, 0, len(chars))
	for _, c := range chars {
		fields := make(map[string]record.Value, len(c.attrs)+2)
		for attr, v := range c.attrs {
			fields[attr] = v
		}
		fields["name"] = record.String(c.name)
		fields["screen_time"] = record.Number(c.screenTime)
		items = append(items, record.Object(fields))
	}
	return record.List(items...)
}

// dominanceRanking orders merged characters by screen time normalized
// against the scene duration, or against the total screen time when
// the duration is zero or unavailable. Ties keep first-appearance
// order.
func dominanceRanking(chars []charEntry, duration float64) []record.DominanceEntry {
	if len(chars) == 0 {
		return []record.DominanceEntry{}
	}

	denom := duration
	if denom <= 0 {
		for _, c := range chars {
			denom += c.screenTime
		}
	}

	out := make([]record.DominanceEntry, 0, len(chars))
	for _, c := range chars {
		score := 0.0
		if denom > 0 {
			score = c.screenTime / denom
		}
		if score > 1 {
			score = 1
		}
		out = append(out, record.DominanceEntry{Name: c.name, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
