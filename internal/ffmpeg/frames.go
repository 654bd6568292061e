package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
)

// ExtractFrames dumps video frames as JPEG images into outDir at the
// given sample rate (frames per second; 0 keeps the source rate).
// Files are named frame_000001.jpg onwards so lexical order is frame
// order.
func (e *Executor) ExtractFrames(ctx context.Context, input, outDir string, sampleFPS float64) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if outDir == "" {
		return fmt.Errorf("output directory is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("out_dir", outDir).
		Float64("sample_fps", sampleFPS).
		Msg("extracting frames")

	args := []string{"-i", input}
	if sampleFPS > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%g", sampleFPS))
	}
	args = append(args,
		"-q:v", "4",
		filepath.Join(outDir, "frame_%06d.jpg"),
	)

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	return e.Run(ctx, opts)
}
