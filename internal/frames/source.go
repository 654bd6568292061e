// Package frames streams per-frame color distributions from a decoded
// video, one sample at a time, so segmentation never holds more than
// the previous frame's histogram in memory.
package frames

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/nfnt/resize"
)

// Frames are downscaled before histogram computation; color
// distribution is insensitive to resolution and this keeps the cost
// per frame flat.
const thumbWidth = 64

// Sample is one frame's color distribution. Samples are immutable and
// are discarded by the consumer once compared against their successor.
type Sample struct {
	Index     int
	Hist      Histogram
	Timestamp time.Duration
}

// Source streams frame samples in increasing index order. Next returns
// io.EOF after the final frame. A Source is consumed exactly once; it
// is not resumable mid-stream.
type Source interface {
	Next() (*Sample, error)
}

// ImageSource streams samples from a directory of extracted frame
// images (one file per frame, lexical order = frame order).
type ImageSource struct {
	files []string
	fps   float64
	idx   int
}

// NewImageSource lists frame images under dir. fps is the extraction
// rate, used to derive sample timestamps.
func NewImageSource(dir string, fps float64) (*ImageSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	if fps <= 0 {
		fps = 1
	}
	return &ImageSource{files: files, fps: fps}, nil
}

// Next decodes the next frame image and returns its sample.
func (s *ImageSource) Next() (*Sample, error) {
	if s.idx >= len(s.files) {
		return nil, io.EOF
	}

	path := s.files[s.idx]
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame %s: %w", path, err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("decoding frame %s: %w", path, err)
	}

	small := resize.Thumbnail(thumbWidth, thumbWidth, img, resize.Bilinear)

	sample := &Sample{
		Index:     s.idx,
		Hist:      NewHistogram(small),
		Timestamp: time.Duration(float64(s.idx) / s.fps * float64(time.Second)),
	}
	s.idx++
	return sample, nil
}

// Len returns the number of frames the source will emit.
func (s *ImageSource) Len() int {
	return len(s.files)
}

// SliceSource streams pre-built histograms. Used by synthetic inputs.
type SliceSource struct {
	hists []Histogram
	fps   float64
	idx   int
}

// NewSliceSource wraps a histogram slice as a Source.
func NewSliceSource(hists []Histogram, fps float64) *SliceSource {
	if fps <= 0 {
		fps = 1
	}
	return &SliceSource{hists: hists, fps: fps}
}

func (s *SliceSource) Next() (*Sample, error) {
	if s.idx >= len(s.hists) {
		return nil, io.EOF
	}
	sample := &Sample{
		Index:     s.idx,
		Hist:      s.hists[s.idx],
		Timestamp: time.Duration(float64(s.idx) / s.fps * float64(time.Second)),
	}
	s.idx++
	return sample, nil
}
