package vision

import (
	"github.com/teslashibe/go-goalvision/pkg/debug"
	"gocv.io/x/gocv"
)

// Selector extracts contours from a cleaned mask and picks the target blob.
type Selector struct {
	config Config
}

// NewSelector creates a selector using cfg's area limits and noise ceiling.
func NewSelector(cfg Config) *Selector {
	return &Selector{config: cfg}
}

// Config returns the selector configuration.
func (s *Selector) Config() Config {
	return s.config
}

// Select finds the largest valid blob in mask.
func (s *Selector) Select(mask gocv.Mat) Selection {
	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	contours := gocv.FindContoursWithParams(mask, &hierarchy, gocv.RetrievalCComp, gocv.ChainApproxSimple)
	defer contours.Close()

	n := contours.Size()
	list := make([]Contour, n)
	for i := 0; i < n; i++ {
		next := -1
		if !hierarchy.Empty() {
			// Hierarchy rows are [next, previous, first child, parent].
			next = int(hierarchy.GetVeciAt(0, i)[0])
		}
		list[i] = Contour{Points: contours.At(i).ToPoints(), Next: next}
	}

	sel := SelectLargest(list, s.config)
	switch {
	case sel.Noisy:
		debug.FrameLog("🎯 %d contours, too noisy\n", sel.Count)
	case sel.Found:
		debug.FrameLog("🎯 %d contours, blob at (%.0f,%.0f) area=%.0f\n", sel.Count, sel.Blob.X, sel.Blob.Y, sel.Blob.Area)
	}
	return sel
}
