package calibration

import (
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// ErrDegenerateROI is reported when the selected region has no area.
var ErrDegenerateROI = errors.New("calibration: region must be at least 1x1 pixels")

// State is the sampler's position in the drag sequence.
type State int

const (
	Idle State = iota
	Dragging
	ROIReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case ROIReady:
		return "roi_ready"
	default:
		return "unknown"
	}
}

// Sampler turns a dragged rectangle into filter bounds.
// Pointer events arrive from the dashboard while Sample runs on the frame loop.
type Sampler struct {
	mu       sync.Mutex
	state    State
	start    image.Point
	current  image.Point
	inMotion bool
	scale    Scale
	filter   *vision.Filter
	samples  SampleSet
	logger   *slog.Logger
}

// NewSampler creates a sampler that writes derived bounds into filter.
func NewSampler(filter *vision.Filter, scale Scale, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		filter: filter,
		scale:  scale,
		logger: logger.With("component", "calibration"),
	}
}

// Handle advances the state machine with one pointer event.
func (s *Sampler) Handle(ev Event) {
	p := s.scale.Apply(ev.X, ev.Y)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case SecondaryPress:
		s.filter.Clear()
		s.logger.Info("filter cleared")
	case Press:
		if s.state == Idle || s.state == ROIReady {
			s.state = Dragging
			s.start = p
			s.current = p
			s.inMotion = false
		}
	case Move:
		if s.state == Dragging {
			s.current = p
			s.inMotion = true
		}
	case Release:
		if s.state == Dragging {
			s.current = p
			s.inMotion = false
			s.state = ROIReady
		}
	}
}

// State returns the current state.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DragRect returns the live rectangle while a drag is in motion.
func (s *Sampler) DragRect() (image.Rectangle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Dragging || !s.inMotion {
		return image.Rectangle{}, false
	}
	return image.Rectangle{Min: s.start, Max: s.current}.Canon(), true
}

// Sample consumes a frozen region, if any, and derives new bounds from px.
// It returns the new range and true only when the filter was updated.
func (s *Sampler) Sample(px PixelSource) (vision.FilterRange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ROIReady || s.inMotion {
		return vision.FilterRange{}, false
	}
	s.state = Idle

	s.samples.Reset()
	roi := image.Rectangle{Min: s.start, Max: s.current}.Canon().Intersect(px.Bounds())
	if roi.Dx() < 1 || roi.Dy() < 1 {
		s.logger.Warn("drag a rectangle over the target to sample it", "error", ErrDegenerateROI, "roi", roi.String())
		return vision.FilterRange{}, false
	}

	s.samples.Collect(px, roi)
	r, ok := s.samples.Range()
	if !ok {
		return vision.FilterRange{}, false
	}
	r = s.filter.Set(r)
	s.logger.Info("filter sampled", "roi", roi.String(), "pixels", s.samples.Len(), "range", r.String())
	return r, true
}
