package web

import (
	"github.com/teslashibe/go-goalvision/pkg/depth"
	"github.com/teslashibe/go-goalvision/pkg/pipeline"
	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// Status is the dashboard view of the vision process.
type Status struct {
	Goal        string             `json:"goal"`
	Backend     string             `json:"backend"`
	Calibrating bool               `json:"calibrating"`
	Latched     bool               `json:"latched"`
	Filter      vision.FilterRange `json:"filter"`
	Sampler     string             `json:"sampler"`

	Found       bool    `json:"found"`
	Noisy       bool    `json:"noisy"`
	Contours    int     `json:"contours"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Depth       float64 `json:"depth,omitempty"`
	DepthStatus string  `json:"depth_status,omitempty"`
	DepthBand   string  `json:"depth_band,omitempty"`
	Published   bool    `json:"published"`

	Frames     uint64  `json:"frames"`
	GrabErrors uint64  `json:"grab_errors"`
	FPS        float64 `json:"fps"`
}

// Apply copies one frame's outcome into the status.
func (st *Status) Apply(res pipeline.Result, stats pipeline.Stats) {
	st.Frames = stats.Frames
	st.GrabErrors = stats.GrabErrors
	st.FPS = stats.FPS
	if res.Err != nil {
		return
	}

	st.Filter = res.Range
	st.Found = res.Selection.Found
	st.Noisy = res.Selection.Noisy
	st.Contours = res.Selection.Count
	st.Published = res.Published
	st.X, st.Y = res.Report.X, res.Report.Y
	st.Width, st.Height = res.Report.Width, res.Report.Height
	st.Depth, st.DepthStatus, st.DepthBand = 0, "", ""
	if res.HasDepth {
		st.Depth = res.Depth.Meters
		st.DepthStatus = res.Depth.Status.String()
		st.DepthBand = depth.Category(res.Depth)
	}
}
