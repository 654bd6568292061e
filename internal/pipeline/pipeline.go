// Package pipeline sequences segmentation, stage collection, fusion
// and validation for whole movies.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pallavi-MMM/movie-indexing/internal/config"
	"github.com/pallavi-MMM/movie-indexing/internal/ffmpeg"
	"github.com/pallavi-MMM/movie-indexing/internal/frames"
	"github.com/pallavi-MMM/movie-indexing/internal/fuse"
	"github.com/pallavi-MMM/movie-indexing/internal/record"
	"github.com/pallavi-MMM/movie-indexing/internal/schema"
	"github.com/pallavi-MMM/movie-indexing/internal/segment"
	"github.com/pallavi-MMM/movie-indexing/internal/stage"
	"github.com/rs/zerolog"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".flv": true,
}

// Pipeline orchestrates scene indexing for movies.
type Pipeline struct {
	logger   zerolog.Logger
	cfg      *config.Config
	schema   *schema.Schema
	registry *stage.Registry
	engine   *fuse.Engine
}

// New creates a pipeline. The ffmpeg binary is only looked up when a
// movie is actually indexed, so record-only fusion works without it.
func New(logger zerolog.Logger, cfg *config.Config, sch *schema.Schema, reg *stage.Registry) *Pipeline {
	if reg == nil {
		reg = stage.NewRegistry(logger)
	}
	return &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		cfg:      cfg,
		schema:   sch,
		registry: reg,
		engine: fuse.NewEngine(logger, fuse.Options{
			DefaultConfidence: cfg.Fusion.DefaultConfidence,
		}),
	}
}

// IndexAll indexes every video file in dir. One movie's failure is
// logged and does not disturb the others; the first error is returned
// after all movies were attempted.
func (p *Pipeline) IndexAll(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading movie dir: %w", err)
	}

	var firstErr error
	for _, e := range entries {
		if e.IsDir() || !videoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, e.Name())
		index, err := p.IndexMovie(ctx, path)
		if err != nil {
			p.logger.Error().Err(err).Str("movie", e.Name()).Msg("movie indexing failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := p.Write(index); err != nil {
			p.logger.Error().Err(err).Str("movie", e.Name()).Msg("writing index failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// IndexMovie segments one movie, runs the registered stages per scene,
// fuses their partial records and validates the result.
func (p *Pipeline) IndexMovie(ctx context.Context, path string) (*MovieIndex, error) {
	movieID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	runID := uuid.NewString()
	logger := p.logger.With().Str("movie_id", movieID).Str("run_id", runID).Logger()

	exec, err := ffmpeg.New(logger, p.cfg.FFmpeg.BinaryPath, p.cfg.FFmpeg.Threads)
	if err != nil {
		return nil, err
	}

	info, err := exec.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", path, err)
	}

	fps := p.cfg.Segmentation.SampleFPS
	if fps <= 0 {
		fps = info.FPS
	}
	if fps <= 0 {
		return nil, fmt.Errorf("probing %s: no usable frame rate", path)
	}

	frameDir := filepath.Join(p.cfg.WorkDir, movieID, "frames")
	if err := prepareFrameDir(frameDir); err != nil {
		return nil, err
	}
	if err := exec.ExtractFrames(ctx, path, frameDir, p.cfg.Segmentation.SampleFPS); err != nil {
		return nil, fmt.Errorf("extracting frames: %w", err)
	}

	src, err := frames.NewImageSource(frameDir, fps)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("frames", src.Len()).Msg("frames extracted")

	detector := segment.NewDetector(logger, segment.Options{
		Threshold:        p.cfg.Segmentation.Threshold,
		MinSceneDuration: p.cfg.Segmentation.MinSceneDuration,
		FPS:              fps,
	})
	intervals, err := detector.Detect(src)
	if err != nil {
		return nil, fmt.Errorf("segmenting %s: %w", path, err)
	}

	index := &MovieIndex{
		MovieID:             movieID,
		SourceFile:          path,
		RunID:               runID,
		MinSceneDurationSec: p.cfg.Segmentation.MinSceneDuration,
	}
	index.Scenes, index.Reports = p.processScenes(ctx, logger, movieID, fps, frameDir, intervals)
	index.SceneCount = len(index.Scenes)

	logger.Info().
		Int("scenes", index.SceneCount).
		Msg("movie indexed")
	return index, nil
}

// processScenes fans scene work out across a bounded worker pool.
// Fusion between scenes shares no mutable state, so order of execution
// does not matter; results are reassembled in scene order.
func (p *Pipeline) processScenes(
	ctx context.Context,
	logger zerolog.Logger,
	movieID string,
	fps float64,
	frameDir string,
	intervals []segment.Interval,
) ([]*record.Canonical, []SceneReport) {
	type result struct {
		rec    *record.Canonical
		report SceneReport
	}

	results := make([]result, len(intervals))
	workers := p.cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, iv := range intervals {
		wg.Add(1)
		sem <- struct{}{}
		go func(ordinal int, iv segment.Interval) {
			defer wg.Done()
			defer func() { <-sem }()

			skeleton := record.Assemble(iv, fps, movieID, movieID, ordinal+1)
			sc := stage.SceneContext{
				SceneID:   skeleton.SceneID,
				MovieID:   movieID,
				Interval:  iv,
				FPS:       fps,
				FramePath: representativeFrame(frameDir, iv),
			}

			partials, stageErrs := p.registry.Collect(ctx, sc)
			partials = append([]record.Partial{skeleton}, partials...)

			rec, diags := p.engine.Fuse(skeleton.SceneID, p.schema, partials)
			violations := p.schema.Validate(rec)

			report := SceneReport{
				SceneID:     skeleton.SceneID,
				StrictOK:    len(violations) == 0,
				Violations:  violations,
				Diagnostics: diags,
			}
			for _, err := range stageErrs {
				report.StageErrors = append(report.StageErrors, err.Error())
			}
			results[ordinal] = result{rec: rec, report: report}
		}(i, iv)
	}
	wg.Wait()

	strict := p.cfg.Schema.Strict
	var recs []*record.Canonical
	var reports []SceneReport
	for _, r := range results {
		if r.rec == nil {
			continue
		}
		reports = append(reports, r.report)
		if strict && !r.report.StrictOK {
			// Fatal for this scene only: the record is withheld but
			// the rest of the movie's scene list is unaffected.
			logger.Error().
				Str("scene_id", r.report.SceneID).
				Int("violations", len(r.report.Violations)).
				Msg("strict validation failed, scene record withheld")
			continue
		}
		for _, v := range r.report.Violations {
			logger.Warn().
				Str("scene_id", r.report.SceneID).
				Str("violation", v.String()).
				Msg("schema violation")
		}
		recs = append(recs, r.rec)
	}
	return recs, reports
}

// FusePartials groups pre-computed partial records by scene and fuses
// each group, preserving first-seen scene order and per-scene input
// order.
func (p *Pipeline) FusePartials(partials []record.Partial) ([]*record.Canonical, []SceneReport) {
	var order []string
	groups := make(map[string][]record.Partial)
	for _, pr := range partials {
		if pr.SceneID == "" {
			continue
		}
		if _, seen := groups[pr.SceneID]; !seen {
			order = append(order, pr.SceneID)
		}
		groups[pr.SceneID] = append(groups[pr.SceneID], pr)
	}

	var recs []*record.Canonical
	var reports []SceneReport
	for _, sceneID := range order {
		rec, diags := p.engine.Fuse(sceneID, p.schema, groups[sceneID])
		violations := p.schema.Validate(rec)
		reports = append(reports, SceneReport{
			SceneID:     sceneID,
			StrictOK:    len(violations) == 0,
			Violations:  violations,
			Diagnostics: diags,
		})
		if p.cfg.Schema.Strict && len(violations) > 0 {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, reports
}

// prepareFrameDir resets the per-movie frame directory. Stale frames
// from an earlier, longer extraction would otherwise be streamed into
// the detector and shift every boundary.
func prepareFrameDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// representativeFrame picks the middle frame of an interval for
// providers that want a single image of the scene.
func representativeFrame(frameDir string, iv segment.Interval) string {
	if frameDir == "" || iv.Frames() <= 0 {
		return ""
	}
	mid := iv.Start + iv.Frames()/2
	// ExtractFrames numbers files from 1.
	return filepath.Join(frameDir, fmt.Sprintf("frame_%06d.jpg", mid+1))
}
