package depth

import (
	"image"

	"gocv.io/x/gocv"
)

// MapSampler reads a single-channel float32 depth map aligned with the color frame.
type MapSampler struct {
	depth gocv.Mat
}

// NewMapSampler wraps a CV_32FC1 depth map. The Mat is borrowed, not owned.
func NewMapSampler(depth gocv.Mat) *MapSampler {
	return &MapSampler{depth: depth}
}

// DepthAt returns the measure at column x, row y.
func (s *MapSampler) DepthAt(x, y int) Measure {
	if s.depth.Empty() || s.depth.Type() != gocv.MatTypeCV32FC1 {
		return Measure{Status: Unavailable}
	}
	if !image.Pt(x, y).In(image.Rect(0, 0, s.depth.Cols(), s.depth.Rows())) {
		return Measure{Status: Unavailable}
	}
	return Classify(float64(s.depth.GetFloatAt(y, x)))
}
