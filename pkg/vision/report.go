package vision

// Report is the per-frame detection published to the control system.
type Report struct {
	X, Y     int
	Depth    float64
	HasDepth bool
	Width    int
	Height   int
}

// NewReport builds a report from a selected blob.
// Coordinates truncate toward zero like integer pixel positions.
func NewReport(b Blob) Report {
	return Report{
		X:      int(b.X),
		Y:      int(b.Y),
		Width:  b.Box.Dx(),
		Height: b.Box.Dy(),
	}
}

// WithDepth returns a copy of the report carrying a distance measurement.
func (r Report) WithDepth(d float64) Report {
	r.Depth = d
	r.HasDepth = true
	return r
}

// Values returns [x, y, depth] when depth is known, otherwise [x, y, width, height].
func (r Report) Values() []float64 {
	if r.HasDepth {
		return []float64{float64(r.X), float64(r.Y), r.Depth}
	}
	return []float64{float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height)}
}
