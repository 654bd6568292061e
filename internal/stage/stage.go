// Package stage defines the capability-provider contract implemented
// by the analysis stages (visual, audio, safety, narrative, ...).
// Providers live outside the core; the fusion engine only sees the
// partial records they return.
package stage

import (
	"context"
	"fmt"

	"github.com/pallavi-MMM/movie-indexing/internal/record"
	"github.com/pallavi-MMM/movie-indexing/internal/segment"
	"github.com/rs/zerolog"
)

// SceneContext carries what a provider needs to analyze one scene.
type SceneContext struct {
	SceneID  string
	MovieID  string
	Interval segment.Interval
	FPS      float64
	// FramePath points at a representative frame image, when frames
	// were extracted. May be empty for record-only runs.
	FramePath string
}

// Provider is one analysis stage. A nil record with a nil error means
// "no contribution for this scene" and is a normal outcome, not an
// error: absence is typed, never a swallowed exception. Genuine
// internal errors are returned and surfaced.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, sc SceneContext) (*record.Partial, error)
}

// DimensionError is raised by embedding-backed providers (e.g. actor
// matching) when vector dimensions disagree. It must reach the caller
// explicitly rather than being absorbed into "no contribution".
type DimensionError struct {
	Stage string
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("stage %s: embedding dimension %d, want %d", e.Stage, e.Got, e.Want)
}

// Registry holds the configured providers in invocation order. The
// order is the fusion tie-break order: later providers win ties.
type Registry struct {
	logger    zerolog.Logger
	providers []Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "stages").Logger(),
	}
}

// Register appends a provider. Registration order is preserved.
func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.providers)
}

// Collect runs every provider against one scene and returns the
// partial records in registration order. A provider that returns no
// contribution is skipped; a provider error is logged, skipped, and
// reported so the caller can surface it — fusion tolerates any subset
// of providers being absent.
func (r *Registry) Collect(ctx context.Context, sc SceneContext) ([]record.Partial, []error) {
	var partials []record.Partial
	var errs []error

	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		partial, err := p.Analyze(ctx, sc)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("stage", p.Name()).
				Str("scene_id", sc.SceneID).
				Msg("stage failed, treating as no contribution")
			errs = append(errs, fmt.Errorf("stage %s: %w", p.Name(), err))
			continue
		}
		if partial == nil {
			r.logger.Debug().
				Str("stage", p.Name()).
				Str("scene_id", sc.SceneID).
				Msg("no contribution")
			continue
		}

		if partial.Stage == "" {
			partial.Stage = p.Name()
		}
		partials = append(partials, *partial)
	}
	return partials, errs
}
