package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// ToHSV converts a BGR frame into the filter color space.
func ToHSV(frame gocv.Mat, hsv *gocv.Mat) {
	gocv.CvtColor(frame, hsv, gocv.ColorBGRToHSV)
}

// Threshold writes a binary mask where a pixel is set iff every HSV channel
// lies inside the inclusive bounds of r.
func Threshold(hsv gocv.Mat, r FilterRange, mask *gocv.Mat) {
	lower := gocv.NewScalar(float64(r.HMin), float64(r.SMin), float64(r.VMin), 0)
	upper := gocv.NewScalar(float64(r.HMax), float64(r.SMax), float64(r.VMax), 0)
	gocv.InRangeWithScalar(hsv, lower, upper, mask)
}

// MatPixels exposes the channels of a 3-channel 8-bit Mat by pixel position.
type MatPixels struct {
	Mat gocv.Mat
}

// Bounds returns the pixel rectangle of the Mat.
func (p MatPixels) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.Mat.Cols(), p.Mat.Rows())
}

// At returns the three channel values at column x, row y.
func (p MatPixels) At(x, y int) (uint8, uint8, uint8) {
	v := p.Mat.GetVecbAt(y, x)
	return v[0], v[1], v[2]
}
