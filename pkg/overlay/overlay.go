// Package overlay draws detection and calibration annotations onto preview frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/teslashibe/go-goalvision/pkg/depth"
	"github.com/teslashibe/go-goalvision/pkg/vision"
	"gocv.io/x/gocv"
)

var (
	white  = color.RGBA{255, 255, 255, 255}
	red    = color.RGBA{255, 0, 0, 255}
	yellow = color.RGBA{255, 255, 0, 255}
	cyan   = color.RGBA{0, 255, 255, 255}
)

// Frame is everything the overlay knows about one iteration.
type Frame struct {
	Selection vision.Selection
	Report    vision.Report
	Depth     depth.Measure
	HasDepth  bool
	Filter    vision.FilterRange
	Drag      image.Rectangle
	Dragging  bool
	Latched   bool
	FPS       float64
}

// Drawer renders annotations in a goal's color.
type Drawer struct {
	Target    color.RGBA
	Crosshair bool
}

// New creates a drawer using target as the detection color.
func New(target color.RGBA) *Drawer {
	return &Drawer{Target: target, Crosshair: true}
}

// Draw annotates img in place.
func (d *Drawer) Draw(img *gocv.Mat, f Frame) {
	w, h := img.Cols(), img.Rows()

	if d.Crosshair {
		DrawCrosshair(img, image.Pt(w/2, h/2), 10, white)
	}

	switch {
	case f.Selection.Noisy:
		gocv.PutText(img, fmt.Sprintf("TOO NOISY (%d)", f.Selection.Count), image.Pt(10, 40),
			gocv.FontHersheySimplex, 0.6, red, 2)
	case f.Selection.Found:
		b := f.Selection.Blob
		gocv.Rectangle(img, b.Box, d.Target, 2)
		center := image.Pt(f.Report.X, f.Report.Y)
		gocv.Circle(img, center, 5, d.Target, -1)
		gocv.Line(img, image.Pt(w/2, h/2), center, yellow, 1)

		label := fmt.Sprintf("(%d,%d) %dx%d", f.Report.X, f.Report.Y, f.Report.Width, f.Report.Height)
		if f.HasDepth {
			label += " " + depthLabel(f.Depth)
		}
		gocv.PutText(img, label, image.Pt(b.Box.Min.X, max(b.Box.Min.Y-8, 12)),
			gocv.FontHersheyPlain, 1.2, d.Target, 1)
	}

	if f.Dragging {
		gocv.Rectangle(img, f.Drag, cyan, 1)
	}

	status := fmt.Sprintf("%s  %.0f fps", f.Filter.String(), f.FPS)
	if f.Latched {
		status += "  SYNC"
	}
	gocv.PutText(img, status, image.Pt(10, h-10), gocv.FontHersheyPlain, 1.0, white, 1)
}

// DrawCrosshair draws a plus sign of the given arm length.
func DrawCrosshair(img *gocv.Mat, c image.Point, arm int, col color.RGBA) {
	gocv.Line(img, image.Pt(c.X-arm, c.Y), image.Pt(c.X+arm, c.Y), col, 1)
	gocv.Line(img, image.Pt(c.X, c.Y-arm), image.Pt(c.X, c.Y+arm), col, 1)
}

func depthLabel(m depth.Measure) string {
	if m.OK() {
		return fmt.Sprintf("%.2fm", m.Meters)
	}
	return m.Status.String()
}
