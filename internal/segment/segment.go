// Package segment turns a frame histogram stream into contiguous,
// non-overlapping scene intervals.
package segment

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pallavi-MMM/movie-indexing/internal/frames"
	"github.com/rs/zerolog"
)

// Interval is a scene as a half-open frame range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Frames returns the number of frames covered by the interval.
func (iv Interval) Frames() int {
	return iv.End - iv.Start
}

// Seconds returns the interval duration at the given frame rate.
func (iv Interval) Seconds(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(iv.Frames()) / fps
}

// StartTime returns the interval start as a duration at the given rate.
func (iv Interval) StartTime(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(iv.Start) / fps * float64(time.Second))
}

// EndTime returns the interval end as a duration at the given rate.
func (iv Interval) EndTime(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(iv.End) / fps * float64(time.Second))
}

// InputError marks a frame stream that became unreadable mid-stream.
// It is fatal for the movie being segmented: no partial interval list
// is returned past the failure point.
type InputError struct {
	Frame int
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("frame stream failed at frame %d: %v", e.Frame, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Options configures boundary detection.
type Options struct {
	// Threshold is the Bhattacharyya distance above which consecutive
	// frames are considered a scene boundary.
	Threshold float64
	// MinSceneDuration in seconds. Intervals shorter than this are
	// merged forward into the following interval rather than emitted.
	// The final interval is always emitted regardless of duration.
	MinSceneDuration float64
	// FPS of the sampled stream, used to convert frame counts to
	// durations for the minimum-duration policy.
	FPS float64
}

// DefaultOptions returns the standard detection parameters.
func DefaultOptions() Options {
	return Options{
		Threshold:        0.30,
		MinSceneDuration: 2.0,
		FPS:              25,
	}
}

// Detector finds scene boundaries in a histogram stream.
type Detector struct {
	logger zerolog.Logger
	opts   Options
}

// NewDetector creates a boundary detector.
func NewDetector(logger zerolog.Logger, opts Options) *Detector {
	if opts.FPS <= 0 {
		opts.FPS = DefaultOptions().FPS
	}
	return &Detector{
		logger: logger.With().Str("component", "scene-detector").Logger(),
		opts:   opts,
	}
}

// Detect consumes the stream exactly once and returns the scene
// intervals. The result is deterministic for a given stream and
// options: the walk keeps only the previous frame's histogram and
// carries no state across invocations.
//
// A stream with no boundary above the threshold yields one interval
// spanning every frame; an empty stream yields no intervals.
func (d *Detector) Detect(src frames.Source) ([]Interval, error) {
	var (
		intervals []Interval
		prev      *frames.Sample
		start     int
		count     int
	)

	for {
		sample, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &InputError{Frame: count, Err: err}
		}
		count = sample.Index + 1

		if prev != nil {
			dist := frames.Distance(prev.Hist, sample.Hist)
			if dist > d.opts.Threshold {
				closed := Interval{Start: start, End: sample.Index}
				if closed.Seconds(d.opts.FPS) >= d.opts.MinSceneDuration {
					intervals = append(intervals, closed)
					start = sample.Index
				} else {
					// Too short to stand alone: the boundary is
					// dropped and the run merges forward into the
					// interval being opened.
					d.logger.Debug().
						Int("start", closed.Start).
						Int("end", closed.End).
						Float64("distance", dist).
						Msg("short interval merged forward")
				}
			}
		}
		prev = sample
	}

	if count == 0 {
		return nil, nil
	}

	// The final interval is emitted unconditionally, even when shorter
	// than the minimum duration.
	intervals = append(intervals, Interval{Start: start, End: count})

	d.logger.Info().
		Int("frames", count).
		Int("scenes", len(intervals)).
		Float64("threshold", d.opts.Threshold).
		Msg("scene detection complete")

	return intervals, nil
}
