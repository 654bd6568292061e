package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pallavi-MMM/movie-indexing/internal/config"
	"github.com/pallavi-MMM/movie-indexing/internal/record"
	"github.com/pallavi-MMM/movie-indexing/internal/schema"
	"github.com/rs/zerolog"
)

const testSchemaDoc = `
fields:
  movie_id:
    type: string
    required: true
  location:
    type: string
  importance_score:
    type: number
    min: 0
    max: 1
`

func testPipeline(t *testing.T, strict bool) *Pipeline {
	t.Helper()
	sch, err := schema.Parse([]byte(testSchemaDoc))
	if err != nil {
		t.Fatalf("parsing schema: %v", err)
	}

	cfg := &config.Config{
		Concurrency: 2,
		Fusion:      config.FusionConfig{DefaultConfidence: 0.5},
		Schema:      config.SchemaConfig{Strict: strict},
	}
	return New(zerolog.Nop(), cfg, sch, nil)
}

func partial(sceneID, stage, field string, v record.Value) record.Partial {
	return record.Partial{
		SceneID: sceneID,
		Stage:   stage,
		Fields: map[string]record.Value{
			"movie_id": record.String("m"),
			field:      v,
		},
	}
}

func TestFusePartialsGroupsByScene(t *testing.T) {
	p := testPipeline(t, false)

	recs, reports := p.FusePartials([]record.Partial{
		partial("m_scene_0002", "visual", "location", record.String("Hallway")),
		partial("m_scene_0001", "visual", "location", record.String("Kitchen")),
		partial("m_scene_0002", "audio", "location", record.String("Hallway")),
	})

	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	// First-seen scene order is preserved.
	if recs[0].SceneID != "m_scene_0002" || recs[1].SceneID != "m_scene_0001" {
		t.Errorf("scene order = %s, %s", recs[0].SceneID, recs[1].SceneID)
	}
	if len(reports) != 2 {
		t.Errorf("reports = %d, want 2", len(reports))
	}
	for _, r := range reports {
		if !r.StrictOK {
			t.Errorf("scene %s failed validation: %v", r.SceneID, r.Violations)
		}
	}
}

func TestFusePartialsLenientKeepsInvalidRecord(t *testing.T) {
	p := testPipeline(t, false)

	recs, reports := p.FusePartials([]record.Partial{
		partial("m_scene_0001", "narrative", "importance_score", record.Number(2.5)),
	})

	if len(recs) != 1 {
		t.Fatalf("records = %d, want best-effort record in lenient mode", len(recs))
	}
	if reports[0].StrictOK {
		t.Error("out-of-range score should be reported")
	}
	// Reported, not silently coerced.
	if got, _ := recs[0].Fields["importance_score"].Float(); got != 2.5 {
		t.Errorf("importance_score = %v, want uncoerced 2.5", got)
	}
}

func TestFusePartialsStrictWithholdsInvalidRecord(t *testing.T) {
	p := testPipeline(t, true)

	recs, reports := p.FusePartials([]record.Partial{
		partial("m_scene_0001", "narrative", "importance_score", record.Number(2.5)),
		partial("m_scene_0002", "visual", "location", record.String("Kitchen")),
	})

	// The failing scene is fatal for that scene only.
	if len(recs) != 1 {
		t.Fatalf("records = %d, want only the valid scene", len(recs))
	}
	if recs[0].SceneID != "m_scene_0002" {
		t.Errorf("kept scene = %s, want m_scene_0002", recs[0].SceneID)
	}
	if len(reports) != 2 {
		t.Errorf("reports = %d, want both scenes reported", len(reports))
	}
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadPartialsToleratesBadConfidence(t *testing.T) {
	dir := t.TempDir()

	// One broken confidence entry must not sink the whole document;
	// fusion downgrades it to a per-scene diagnostic.
	path := writeTempFile(t, dir, "partials.json", `[
		{"scene_id": "m_scene_0001", "stage": "visual",
		 "fields": {"movie_id": "m", "location": "Kitchen"},
		 "field_confidences": {"location": "high"}},
		{"scene_id": "m_scene_0002", "stage": "visual",
		 "fields": {"movie_id": "m", "location": "Hallway"},
		 "field_confidences": {"location": 0.9}}
	]`)

	partials, err := LoadPartials(path)
	if err != nil {
		t.Fatalf("LoadPartials: %v", err)
	}
	if len(partials) != 2 {
		t.Fatalf("partials = %d, want both scenes", len(partials))
	}

	p := testPipeline(t, false)
	recs, reports := p.FusePartials(partials)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if got, _ := recs[0].Fields["location"].Str(); got != "Kitchen" {
		t.Errorf("scene 1 location = %q, want Kitchen", got)
	}
	if len(reports[0].Diagnostics) != 1 {
		t.Errorf("scene 1 diagnostics = %v, want 1", reports[0].Diagnostics)
	}
	if len(reports[1].Diagnostics) != 0 {
		t.Errorf("scene 2 diagnostics = %v, want none", reports[1].Diagnostics)
	}
	if recs[1].FieldConfidences["location"] != 0.9 {
		t.Errorf("scene 2 confidence = %v, want 0.9", recs[1].FieldConfidences["location"])
	}
}

func TestPrepareFrameDirClearsStaleFrames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "movie", "frames")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "frame_000042.jpg")
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := prepareFrameDir(dir); err != nil {
		t.Fatalf("prepareFrameDir: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("frame dir missing after prepare: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("frame dir not empty, found %d stale entries", len(entries))
	}
}

func TestLoadPartialsListAndSingle(t *testing.T) {
	dir := t.TempDir()

	list := writeTempFile(t, dir, "list.json", `[
		{"scene_id": "m_scene_0001", "stage": "visual", "fields": {"location": "Kitchen"}},
		{"scene_id": "m_scene_0001", "stage": "audio", "fields": {"location": "Hallway"}}
	]`)
	single := writeTempFile(t, dir, "single.json",
		`{"scene_id": "m_scene_0002", "stage": "visual", "fields": {"location": "Roof"}}`)

	got, err := LoadPartials(list)
	if err != nil {
		t.Fatalf("LoadPartials(list): %v", err)
	}
	if len(got) != 2 || got[1].Stage != "audio" {
		t.Errorf("list partials = %+v", got)
	}

	got, err = LoadPartials(single)
	if err != nil {
		t.Fatalf("LoadPartials(single): %v", err)
	}
	if len(got) != 1 || got[0].SceneID != "m_scene_0002" {
		t.Errorf("single partial = %+v", got)
	}
}
