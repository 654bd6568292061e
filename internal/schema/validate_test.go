package schema

import (
	"strings"
	"testing"

	"github.com/pallavi-MMM/movie-indexing/internal/record"
)

const testSchemaDoc = `
fields:
  movie_id:
    type: string
    required: true
  duration:
    type: number
    min: 0
    max: 100
  time_of_day:
    type: string
    enum: [morning, afternoon, evening, night]
  rating_flags:
    type: object
    additionalProperties:
      type: boolean
  tags:
    type: array
    items:
      type: string
`

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := Parse([]byte(testSchemaDoc))
	if err != nil {
		t.Fatalf("parsing schema: %v", err)
	}
	return s
}

func validRecord() *record.Canonical {
	return &record.Canonical{
		SceneID: "m_scene_0001",
		Fields: map[string]record.Value{
			"movie_id":     record.String("m"),
			"duration":     record.Number(12.5),
			"time_of_day":  record.String("night"),
			"rating_flags": record.Object(map[string]record.Value{"violence": record.Bool(false)}),
			"tags":         record.List(record.String("rain")),
		},
		FieldConfidences: map[string]float64{"duration": 1},
		FieldProvenance:  map[string][]string{"duration": {"segmentation"}},
	}
}

func hasViolation(violations []Violation, path, fragment string) bool {
	for _, v := range violations {
		if v.Path == path && strings.Contains(v.Constraint, fragment) {
			return true
		}
	}
	return false
}

func TestValidRecordHasNoViolations(t *testing.T) {
	got := testSchema(t).Validate(validRecord())
	if len(got) != 0 {
		t.Errorf("violations = %v, want none", got)
	}
}

func TestNumericRangeViolation(t *testing.T) {
	rec := validRecord()
	rec.Fields["duration"] = record.Number(150)

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "duration", "maximum") {
		t.Errorf("violations = %v, want duration maximum violation", got)
	}

	rec.Fields["duration"] = record.Number(-1)
	got = testSchema(t).Validate(rec)
	if !hasViolation(got, "duration", "minimum") {
		t.Errorf("violations = %v, want duration minimum violation", got)
	}
}

func TestRequiredFieldMissing(t *testing.T) {
	rec := validRecord()
	delete(rec.Fields, "movie_id")

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "movie_id", "required") {
		t.Errorf("violations = %v, want missing movie_id", got)
	}
}

func TestTypeMismatch(t *testing.T) {
	rec := validRecord()
	rec.Fields["movie_id"] = record.Number(7)

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "movie_id", "type string") {
		t.Errorf("violations = %v, want type violation", got)
	}
}

func TestEnumViolation(t *testing.T) {
	rec := validRecord()
	rec.Fields["time_of_day"] = record.String("dusk")

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "time_of_day", "one of") {
		t.Errorf("violations = %v, want enum violation", got)
	}
}

func TestEnumAcceptsEmptyStringDefault(t *testing.T) {
	// The empty string is the fill-in for an absent enum field and
	// passes as "unknown"; any other non-member still fails.
	rec := validRecord()
	rec.Fields["time_of_day"] = record.String("")

	got := testSchema(t).Validate(rec)
	if hasViolation(got, "time_of_day", "one of") {
		t.Errorf("violations = %v, empty string should pass the enum", got)
	}
}

func TestAdditionalPropertiesTypeChecked(t *testing.T) {
	rec := validRecord()
	rec.Fields["rating_flags"] = record.Object(map[string]record.Value{
		"violence": record.Bool(true),
		"language": record.String("severe"),
	})

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "rating_flags.language", "type boolean") {
		t.Errorf("violations = %v, want extra-key type violation", got)
	}
}

func TestArrayItemTypeChecked(t *testing.T) {
	rec := validRecord()
	rec.Fields["tags"] = record.List(record.String("ok"), record.Number(3))

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "tags[1]", "type string") {
		t.Errorf("violations = %v, want item type violation", got)
	}
}

func TestConfidenceRangeChecked(t *testing.T) {
	rec := validRecord()
	rec.FieldConfidences["duration"] = 1.2

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "field_confidences.duration", "[0,1]") {
		t.Errorf("violations = %v, want confidence range violation", got)
	}
}

func TestProvenanceEntriesNonEmpty(t *testing.T) {
	rec := validRecord()
	rec.FieldProvenance["duration"] = []string{"segmentation", ""}

	got := testSchema(t).Validate(rec)
	if !hasViolation(got, "field_provenance.duration[1]", "non-empty") {
		t.Errorf("violations = %v, want provenance violation", got)
	}
}

func TestDefaultValues(t *testing.T) {
	doc := `
fields:
  notes:
    type: string
    default: "n/a"
  objects:
    type: array
  score:
    type: number
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got, _ := s.DefaultValue("notes").Str(); got != "n/a" {
		t.Errorf("notes default = %q", got)
	}
	if items := s.DefaultValue("objects").Items(); items == nil || len(items) != 0 {
		t.Errorf("objects default = %v, want empty list", items)
	}
	if got, _ := s.DefaultValue("score").Float(); got != 0 {
		t.Errorf("score default = %v", got)
	}
}

func TestValidatePartialFlagsUndeclaredField(t *testing.T) {
	p := &record.Partial{
		SceneID: "m_scene_0001",
		Stage:   "visual",
		Fields: map[string]record.Value{
			"unknown_field": record.String("x"),
			"duration":      record.Number(5),
		},
	}

	got := testSchema(t).ValidatePartial(p)
	if !hasViolation(got, "unknown_field", "declared") {
		t.Errorf("violations = %v, want undeclared-field violation", got)
	}
}
