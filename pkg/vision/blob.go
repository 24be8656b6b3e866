package vision

import (
	"image"
	"math"
)

// Contour is one outline from contour extraction.
// Next is the index of the following contour on the same hierarchy level, or -1.
type Contour struct {
	Points []image.Point
	Next   int
}

// Chain links contours as siblings in the given order.
func Chain(outlines [][]image.Point) []Contour {
	contours := make([]Contour, len(outlines))
	for i, pts := range outlines {
		next := i + 1
		if next == len(outlines) {
			next = -1
		}
		contours[i] = Contour{Points: pts, Next: next}
	}
	return contours
}

// Blob is a candidate target region in a single frame.
type Blob struct {
	X, Y float64         // Centroid (m10/m00, m01/m00)
	Area float64         // Zeroth spatial moment
	Box  image.Rectangle // Bounding box
}

// Selection is the outcome of blob selection on one mask.
type Selection struct {
	Blob  Blob
	Found bool
	Noisy bool // Contour count exceeded the noise ceiling
	Count int  // Total contours extracted
}

// Moments are the spatial moments of a closed polygon up to first order.
type Moments struct {
	M00, M10, M01 float64
}

// PolygonMoments computes the moments of a closed outline using Green's theorem,
// the same result OpenCV gives for contour moments.
func PolygonMoments(pts []image.Point) Moments {
	n := len(pts)
	if n == 0 {
		return Moments{}
	}

	var a00, a10, a01 float64
	prev := pts[n-1]
	for _, p := range pts {
		xp, yp := float64(prev.X), float64(prev.Y)
		x, y := float64(p.X), float64(p.Y)
		cross := xp*y - x*yp
		a00 += cross
		a10 += cross * (xp + x)
		a01 += cross * (yp + y)
		prev = p
	}

	m := Moments{M00: a00 / 2, M10: a10 / 6, M01: a01 / 6}
	// Orientation depends on traversal direction.
	if m.M00 < 0 {
		m = Moments{M00: -m.M00, M10: -m.M10, M01: -m.M01}
	}
	return m
}

// BoundingBox returns the smallest pixel rectangle containing every point.
func BoundingBox(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := math.MinInt, math.MinInt
	for _, p := range pts {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// SelectLargest walks the top-level contours starting at index 0 and returns the
// largest one whose area lies strictly inside (MinObjectArea, MaxObjectArea).
// The first contour of maximal area wins ties. More than MaxObjects contours
// marks the selection noisy and skips it.
func SelectLargest(contours []Contour, cfg Config) Selection {
	sel := Selection{Count: len(contours)}
	if len(contours) == 0 {
		return sel
	}
	if len(contours) > cfg.MaxObjects {
		sel.Noisy = true
		return sel
	}

	refArea := 0.0
	visited := 0
	for i := 0; i >= 0 && i < len(contours) && visited < len(contours); i = contours[i].Next {
		visited++
		m := PolygonMoments(contours[i].Points)
		area := m.M00
		if area > cfg.MinObjectArea && area < cfg.MaxObjectArea && area > refArea {
			refArea = area
			sel.Found = true
			sel.Blob = Blob{
				X:    m.M10 / area,
				Y:    m.M01 / area,
				Area: area,
				Box:  BoundingBox(contours[i].Points),
			}
		}
	}
	return sel
}
