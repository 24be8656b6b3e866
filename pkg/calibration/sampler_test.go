package calibration

import (
	"image"
	"testing"

	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// gridPixels is an in-memory PixelSource.
type gridPixels struct {
	w, h int
	px   map[image.Point][3]uint8
}

func newGrid(w, h int) *gridPixels {
	return &gridPixels{w: w, h: h, px: make(map[image.Point][3]uint8)}
}

func (g *gridPixels) Bounds() image.Rectangle { return image.Rect(0, 0, g.w, g.h) }

func (g *gridPixels) At(x, y int) (uint8, uint8, uint8) {
	v := g.px[image.Pt(x, y)]
	return v[0], v[1], v[2]
}

func (g *gridPixels) set(x, y int, h, s, v uint8) {
	g.px[image.Pt(x, y)] = [3]uint8{h, s, v}
}

func drag(s *Sampler, x0, y0, x1, y1 int) {
	s.Handle(Event{Kind: Press, X: x0, Y: y0})
	s.Handle(Event{Kind: Move, X: (x0 + x1) / 2, Y: (y0 + y1) / 2})
	s.Handle(Event{Kind: Release, X: x1, Y: y1})
}

func TestSampleKnownPixels(t *testing.T) {
	grid := newGrid(10, 10)
	grid.set(2, 2, 30, 200, 20)
	grid.set(3, 2, 90, 50, 255)
	grid.set(2, 3, 60, 100, 100)
	grid.set(3, 3, 45, 150, 80)

	filter := vision.NewFilter(vision.OpenRange())
	s := NewSampler(filter, Scale{}, nil)
	drag(s, 2, 2, 4, 4)

	if got := s.State(); got != ROIReady {
		t.Fatalf("state after release = %v, want roi_ready", got)
	}

	r, ok := s.Sample(grid)
	if !ok {
		t.Fatal("Sample() did not update the filter")
	}
	want := vision.FilterRange{HMin: 30, HMax: 90, SMin: 50, SMax: 200, VMin: 20, VMax: 255}
	if r != want {
		t.Errorf("Sample() = %v, want %v", r, want)
	}
	if got := filter.Range(); got != want {
		t.Errorf("filter range = %v, want %v", got, want)
	}
	if got := s.State(); got != Idle {
		t.Errorf("state after sampling = %v, want idle", got)
	}

	// Nothing left to consume.
	if _, ok := s.Sample(grid); ok {
		t.Error("second Sample() should be a no-op")
	}
}

func TestSampleReversedDrag(t *testing.T) {
	grid := newGrid(10, 10)
	grid.set(5, 5, 10, 20, 30)

	filter := vision.NewFilter(vision.OpenRange())
	s := NewSampler(filter, Scale{}, nil)
	drag(s, 6, 6, 5, 5)

	r, ok := s.Sample(grid)
	if !ok {
		t.Fatal("Sample() did not update the filter")
	}
	want := vision.FilterRange{HMin: 10, HMax: 10, SMin: 20, SMax: 20, VMin: 30, VMax: 30}
	if r != want {
		t.Errorf("Sample() = %v, want %v", r, want)
	}
}

func TestDegenerateROI(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
	}{
		{"single click", 4, 4, 4, 4},
		{"zero width", 4, 1, 4, 8},
		{"zero height", 1, 4, 8, 4},
		{"outside frame", 20, 20, 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := vision.FilterRange{HMin: 1, HMax: 2, SMin: 3, SMax: 4, VMin: 5, VMax: 6}
			filter := vision.NewFilter(seed)
			s := NewSampler(filter, Scale{}, nil)
			drag(s, tt.x0, tt.y0, tt.x1, tt.y1)

			if _, ok := s.Sample(newGrid(10, 10)); ok {
				t.Error("degenerate region must not update the filter")
			}
			if got := filter.Range(); got != seed {
				t.Errorf("filter range = %v, want unchanged %v", got, seed)
			}
			if got := s.State(); got != Idle {
				t.Errorf("state = %v, want idle", got)
			}
		})
	}
}

func TestDegenerateROIClearsPreviousSamples(t *testing.T) {
	grid := newGrid(10, 10)
	grid.set(2, 2, 30, 200, 20)

	s := NewSampler(vision.NewFilter(vision.OpenRange()), Scale{}, nil)
	drag(s, 2, 2, 3, 3)
	if _, ok := s.Sample(grid); !ok {
		t.Fatal("Sample() did not update the filter")
	}
	if got := s.samples.Len(); got != 1 {
		t.Fatalf("samples after first pass = %d, want 1", got)
	}

	drag(s, 4, 4, 4, 4)
	if _, ok := s.Sample(grid); ok {
		t.Fatal("degenerate region must not update the filter")
	}
	if got := s.samples.Len(); got != 0 {
		t.Errorf("samples after degenerate pass = %d, want 0", got)
	}
}

func TestSampleDeferredWhileDragging(t *testing.T) {
	grid := newGrid(10, 10)
	s := NewSampler(vision.NewFilter(vision.OpenRange()), Scale{}, nil)

	s.Handle(Event{Kind: Press, X: 1, Y: 1})
	s.Handle(Event{Kind: Move, X: 5, Y: 5})

	rect, ok := s.DragRect()
	if !ok || rect != image.Rect(1, 1, 5, 5) {
		t.Errorf("DragRect() = %v, %v; want (1,1)-(5,5), true", rect, ok)
	}
	if _, ok := s.Sample(grid); ok {
		t.Error("Sample() must wait for release")
	}

	s.Handle(Event{Kind: Release, X: 6, Y: 6})
	if _, ok := s.DragRect(); ok {
		t.Error("DragRect() should end on release")
	}
	if _, ok := s.Sample(grid); !ok {
		t.Error("Sample() after release should update")
	}
}

func TestSecondaryPressClearsFilter(t *testing.T) {
	filter := vision.NewFilter(vision.OpenRange())
	s := NewSampler(filter, Scale{}, nil)

	s.Handle(Event{Kind: Press, X: 1, Y: 1})
	s.Handle(Event{Kind: SecondaryPress})

	if got := filter.Range(); got != (vision.FilterRange{}) {
		t.Errorf("filter range = %v, want cleared", got)
	}
	if got := s.State(); got != Dragging {
		t.Errorf("state = %v, secondary press should not affect the drag", got)
	}
}

func TestScaleApply(t *testing.T) {
	tests := []struct {
		name  string
		scale Scale
		x, y  int
		want  image.Point
	}{
		{"native", Scale{}, 10, 20, image.Pt(10, 20)},
		{"half size display", Scale{DisplayWidth: 320, DisplayHeight: 240, NativeWidth: 640, NativeHeight: 480}, 100, 50, image.Pt(200, 100)},
		{"upscaled display", Scale{DisplayWidth: 1280, DisplayHeight: 960, NativeWidth: 640, NativeHeight: 480}, 100, 50, image.Pt(50, 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scale.Apply(tt.x, tt.y); got != tt.want {
				t.Errorf("Apply(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestParseEventKind(t *testing.T) {
	for _, k := range []EventKind{Press, Move, Release, SecondaryPress} {
		got, ok := ParseEventKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseEventKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseEventKind("wheel"); ok {
		t.Error("unexpected kind accepted")
	}
}
