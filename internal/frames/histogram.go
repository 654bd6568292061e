package frames

import (
	"image"
	"math"
)

// Buckets per Lab axis. The full histogram is a fixed 8x8x8 = 512
// bucket vector regardless of frame dimensions.
const (
	AxisBuckets  = 8
	HistogramLen = AxisBuckets * AxisBuckets * AxisBuckets
)

// Histogram is a normalized color distribution over CIE Lab buckets.
// Entries sum to 1 for any non-empty frame.
type Histogram [HistogramLen]float64

// NewHistogram computes the normalized Lab histogram of an image.
func NewHistogram(img image.Image) Histogram {
	var h Histogram
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return h
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			l, la, lb := rgbToLab(float64(r)/65535.0, float64(g)/65535.0, float64(b)/65535.0)
			h[labBucket(l, la, lb)]++
		}
	}

	inv := 1.0 / float64(total)
	for i := range h {
		h[i] *= inv
	}
	return h
}

// Distance returns the Bhattacharyya distance between two normalized
// histograms: 0 for identical distributions, 1 for disjoint ones.
func Distance(a, b Histogram) float64 {
	coeff := 0.0
	for i := range a {
		coeff += math.Sqrt(a[i] * b[i])
	}
	if coeff > 1 {
		coeff = 1
	}
	return math.Sqrt(1 - coeff)
}

// labBucket maps a Lab triple to its histogram index. L is in [0,100],
// a and b in roughly [-128,127].
func labBucket(l, a, b float64) int {
	li := axisBucket(l, 0, 100)
	ai := axisBucket(a, -128, 127)
	bi := axisBucket(b, -128, 127)
	return li*AxisBuckets*AxisBuckets + ai*AxisBuckets + bi
}

func axisBucket(v, lo, hi float64) int {
	idx := int((v - lo) / (hi - lo) * AxisBuckets)
	if idx < 0 {
		return 0
	}
	if idx >= AxisBuckets {
		return AxisBuckets - 1
	}
	return idx
}

// rgbToLab converts linear-range sRGB components in [0,1] to CIE Lab
// under the D65 white point.
func rgbToLab(r, g, b float64) (float64, float64, float64) {
	r = invGamma(r)
	g = invGamma(g)
	b = invGamma(b)

	// sRGB to XYZ (D65)
	x := 0.4124564*r + 0.3575761*g + 0.1804375*b
	y := 0.2126729*r + 0.7151522*g + 0.0721750*b
	z := 0.0193339*r + 0.1191920*g + 0.9503041*b

	// Normalize by D65 reference white
	fx := labF(x / 0.95047)
	fy := labF(y / 1.00000)
	fz := labF(z / 1.08883)

	l := 116*fy - 16
	a := 500 * (fx - fy)
	bb := 200 * (fy - fz)
	return l, a, bb
}

func invGamma(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}
