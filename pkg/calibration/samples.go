package calibration

import (
	"image"
	"slices"

	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// PixelSource exposes the three channel values of a frame by position.
type PixelSource interface {
	Bounds() image.Rectangle
	At(x, y int) (uint8, uint8, uint8)
}

// SampleSet collects channel values over a region, one sequence per channel.
type SampleSet struct {
	H, S, V []int
}

// Reset empties the set, keeping its storage.
func (s *SampleSet) Reset() {
	s.H = s.H[:0]
	s.S = s.S[:0]
	s.V = s.V[:0]
}

// Add appends one pixel.
func (s *SampleSet) Add(h, sat, v uint8) {
	s.H = append(s.H, int(h))
	s.S = append(s.S, int(sat))
	s.V = append(s.V, int(v))
}

// Len returns the number of pixels collected.
func (s *SampleSet) Len() int {
	return min(len(s.H), len(s.S), len(s.V))
}

// Range returns [min,max] of each channel, or false when any channel is empty.
func (s *SampleSet) Range() (vision.FilterRange, bool) {
	if len(s.H) == 0 || len(s.S) == 0 || len(s.V) == 0 {
		return vision.FilterRange{}, false
	}
	return vision.FilterRange{
		HMin: slices.Min(s.H), HMax: slices.Max(s.H),
		SMin: slices.Min(s.S), SMax: slices.Max(s.S),
		VMin: slices.Min(s.V), VMax: slices.Max(s.V),
	}, true
}

// Collect appends every pixel of roi to the set.
func (s *SampleSet) Collect(px PixelSource, roi image.Rectangle) {
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			s.Add(px.At(x, y))
		}
	}
}
