package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pallavi-MMM/movie-indexing/internal/fuse"
	"github.com/pallavi-MMM/movie-indexing/internal/record"
	"github.com/pallavi-MMM/movie-indexing/internal/schema"
)

// MovieIndex is the per-movie output document: one canonical record
// per detected scene, in scene order, plus per-scene reports.
type MovieIndex struct {
	MovieID             string              `json:"movie_id"`
	SourceFile          string              `json:"source_file"`
	RunID               string              `json:"run_id"`
	GeneratedAt         time.Time           `json:"generated_at"`
	SceneCount          int                 `json:"scene_count"`
	MinSceneDurationSec float64             `json:"min_scene_duration_sec"`
	Scenes              []*record.Canonical `json:"scenes"`
	Reports             []SceneReport       `json:"reports,omitempty"`
}

// SceneReport records, per scene, whether strict validation passed and
// the advisory diagnostics collected along the way.
type SceneReport struct {
	SceneID     string             `json:"scene_id"`
	StrictOK    bool               `json:"strict_ok"`
	Violations  []schema.Violation `json:"violations,omitempty"`
	Diagnostics []fuse.Diagnostic  `json:"diagnostics,omitempty"`
	StageErrors []string           `json:"stage_errors,omitempty"`
}

// Write serializes the index to the configured output directory as
// {movie_id}_complete_schema.json.
func (p *Pipeline) Write(index *MovieIndex) error {
	if index.GeneratedAt.IsZero() {
		index.GeneratedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_complete_schema.json", index.MovieID))

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	p.logger.Info().
		Str("movie_id", index.MovieID).
		Str("path", path).
		Int("scenes", index.SceneCount).
		Msg("scene index written")
	return nil
}

// LoadPartials reads partial records from a JSON file holding either a
// single partial or a list of partials.
func LoadPartials(path string) ([]record.Partial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading partials: %w", err)
	}

	var list []record.Partial
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var one record.Partial
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parsing partials %s: %w", path, err)
	}
	return []record.Partial{one}, nil
}
