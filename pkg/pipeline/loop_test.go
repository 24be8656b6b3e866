package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-goalvision/pkg/calibration"
	"github.com/teslashibe/go-goalvision/pkg/camera"
	"github.com/teslashibe/go-goalvision/pkg/depth"
	"github.com/teslashibe/go-goalvision/pkg/overlay"
	"github.com/teslashibe/go-goalvision/pkg/presets"
	"github.com/teslashibe/go-goalvision/pkg/table"
	"github.com/teslashibe/go-goalvision/pkg/vision"
	"gocv.io/x/gocv"
)

var green = vision.FilterRange{HMin: 50, HMax: 70, SMin: 100, SMax: 255, VMin: 100, VMax: 255}

const detectionKey = table.DefaultNamespace + "/" + table.DefaultDetectionKey

// fakeSource serves a black 128x128 frame with a 30x30 green square covering
// pixels 50..79, centered on 64.5.
type fakeSource struct {
	frame gocv.Mat
	err   error
	reads int
}

func newFakeSource() *fakeSource {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 128, 128, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, image.Rect(50, 50, 79, 79), color.RGBA{G: 255, A: 255}, -1)
	return &fakeSource{frame: frame}
}

func (f *fakeSource) Read(dst *gocv.Mat) error {
	f.reads++
	if f.err != nil {
		return f.err
	}
	f.frame.CopyTo(dst)
	return nil
}

func (f *fakeSource) Close() {
	f.frame.Close()
}

// fakeDepthSource adds a uniform depth map.
type fakeDepthSource struct {
	*fakeSource
	meters float32
	err    error
}

func (f *fakeDepthSource) ReadDepth(dst *gocv.Mat) error {
	if f.err != nil {
		return f.err
	}
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(f.meters), 0, 0, 0), 128, 128, gocv.MatTypeCV32FC1)
	defer m.Close()
	m.CopyTo(dst)
	return nil
}

type mockApplier struct {
	calls int
}

func (m *mockApplier) SetSetting(s camera.Setting, value int, auto bool) error {
	m.calls++
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Telemetry.Enabled = false
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func newLoop(t *testing.T, cfg Config, src camera.Source, r vision.FilterRange) (*Loop, *table.Memory, *vision.Filter) {
	t.Helper()
	store := table.NewMemory()
	filter := vision.NewFilter(r)
	l, err := New(cfg, Deps{Source: src, Store: store, Filter: filter}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, store, filter
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(testConfig(), Deps{}, nil); err == nil {
		t.Error("expected error without source, store and filter")
	}

	cfg := testConfig()
	cfg.DetectionKey = ""
	src := newFakeSource()
	defer src.Close()
	if _, err := New(cfg, Deps{Source: src, Store: table.NewMemory(), Filter: vision.NewFilter(green)}, nil); err == nil {
		t.Error("expected error for empty detection key")
	}
}

func TestStepPublishesDetection(t *testing.T) {
	src := newFakeSource()
	defer src.Close()
	l, store, _ := newLoop(t, testConfig(), src, green)

	res := l.Step(context.Background())
	if res.Err != nil {
		t.Fatalf("Step() error = %v", res.Err)
	}
	if !res.Selection.Found {
		t.Fatalf("expected a detection, got %+v", res.Selection)
	}
	if !res.Published {
		t.Fatal("expected detection to be published")
	}
	if res.HasDepth {
		t.Error("color-only source should not measure depth")
	}

	got := store.GetNumberArray(detectionKey, nil)
	if len(got) != 4 {
		t.Fatalf("published %v, want [x y w h]", got)
	}
	const center = 64.5
	if math.Abs(got[0]-center) > 1 || math.Abs(got[1]-center) > 1 {
		t.Errorf("published center (%v,%v), want within 1px of (%v,%v)", got[0], got[1], center, center)
	}
	if got[2] < 20 || got[3] < 20 {
		t.Errorf("published size %vx%v, want about the square size", got[2], got[3])
	}

	if s := l.Stats(); s.Frames != 1 || s.Detections != 1 {
		t.Errorf("Stats() = %+v, want one frame and one detection", s)
	}
}

func TestStepNoDetection(t *testing.T) {
	src := newFakeSource()
	defer src.Close()
	red := vision.FilterRange{HMin: 0, HMax: 10, SMin: 100, SMax: 255, VMin: 100, VMax: 255}
	l, store, _ := newLoop(t, testConfig(), src, red)

	res := l.Step(context.Background())
	if res.Selection.Found || res.Published {
		t.Errorf("red filter should not detect a green target, got %+v", res)
	}
	if _, ok := store.Get(detectionKey); ok {
		t.Error("nothing should be written without a detection")
	}
}

func TestStepGrabFailure(t *testing.T) {
	src := newFakeSource()
	defer src.Close()
	src.err = camera.ErrGrabFailed
	l, store, _ := newLoop(t, testConfig(), src, green)

	res := l.Step(context.Background())
	if !errors.Is(res.Err, camera.ErrGrabFailed) {
		t.Fatalf("Step() error = %v, want ErrGrabFailed", res.Err)
	}
	if _, ok := store.Get(detectionKey); ok {
		t.Error("failed grab must not publish")
	}
	if s := l.Stats(); s.GrabErrors != 1 || s.Frames != 0 {
		t.Errorf("Stats() = %+v, want one grab error and no frames", s)
	}

	// Recovers on the next frame.
	src.err = nil
	if res := l.Step(context.Background()); !res.Published {
		t.Error("expected detection after recovery")
	}
}

func TestStepDepthPolicy(t *testing.T) {
	tests := []struct {
		name        string
		meters      float32
		readErr     error
		withoutDep  bool
		wantPublish bool
		wantLen     int
		wantStatus  depth.Status
	}{
		{"valid depth", 2.5, nil, false, true, 3, depth.Valid},
		{"too close suppressed", float32(math.Inf(-1)), nil, false, false, 0, depth.TooClose},
		{"too far suppressed", float32(math.Inf(1)), nil, false, false, 0, depth.TooFar},
		{"no reading suppressed", float32(math.NaN()), nil, false, false, 0, depth.Unavailable},
		{"read error suppressed", 0, errors.New("sensor"), false, false, 0, depth.Unavailable},
		{"fallback without depth", float32(math.Inf(1)), nil, true, true, 4, depth.TooFar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := newFakeSource()
			defer base.Close()
			src := &fakeDepthSource{fakeSource: base, meters: tt.meters, err: tt.readErr}

			cfg := testConfig()
			cfg.PublishWithoutDepth = tt.withoutDep
			l, store, _ := newLoop(t, cfg, src, green)

			res := l.Step(context.Background())
			if !res.HasDepth {
				t.Fatal("depth source should be sampled")
			}
			if res.Depth.Status != tt.wantStatus {
				t.Errorf("depth status = %v, want %v", res.Depth.Status, tt.wantStatus)
			}
			if res.Published != tt.wantPublish {
				t.Fatalf("Published = %v, want %v", res.Published, tt.wantPublish)
			}

			got := store.GetNumberArray(detectionKey, nil)
			if len(got) != tt.wantLen {
				t.Fatalf("published %v, want %d values", got, tt.wantLen)
			}
			if tt.wantLen == 3 && got[2] != float64(tt.meters) {
				t.Errorf("published depth %v, want %v", got[2], tt.meters)
			}
		})
	}
}

func TestStepWidthEstimate(t *testing.T) {
	src := newFakeSource()
	defer src.Close()

	cfg := testConfig()
	cfg.EstimateDepth = true
	cfg.Width.MaxDistance = 100
	cfg.Width.MinDistance = 0.01
	l, store, _ := newLoop(t, cfg, src, green)

	res := l.Step(context.Background())
	if !res.HasDepth || !res.Depth.OK() {
		t.Fatalf("expected width estimate, got %+v", res.Depth)
	}
	got := store.GetNumberArray(detectionKey, nil)
	if len(got) != 3 || got[2] != res.Depth.Meters {
		t.Errorf("published %v, want [x y %v]", got, res.Depth.Meters)
	}
}

func TestStepCalibration(t *testing.T) {
	src := newFakeSource()
	defer src.Close()

	store := table.NewMemory()
	filter := vision.NewFilter(vision.FilterRange{})
	sampler := calibration.NewSampler(filter, calibration.Scale{}, nil)
	l, err := New(testConfig(), Deps{
		Source:   src,
		Store:    store,
		Filter:   filter,
		Sampler:  sampler,
		Settings: camera.NewManager(camera.DefaultConfig(), &mockApplier{}),
		Drawer:   overlay.New(presets.HighGoal.Overlay),
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Close()

	drag := func(x0, y0, x1, y1 int) {
		sampler.Handle(calibration.Event{Kind: calibration.Press, X: x0, Y: y0})
		sampler.Handle(calibration.Event{Kind: calibration.Move, X: x1, Y: y1})
		sampler.Handle(calibration.Event{Kind: calibration.Release, X: x1, Y: y1})
	}
	hsvVals := table.NewKeys(table.DefaultNamespace).Key(table.KeyHSVVals)

	drag(55, 55, 75, 75)
	res := l.Step(context.Background())
	if !res.Sampled {
		t.Fatal("expected the region to be sampled")
	}
	want := vision.FilterRange{HMin: 60, HMax: 60, SMin: 255, SMax: 255, VMin: 255, VMax: 255}
	if got := filter.Range(); got != want {
		t.Errorf("filter = %v, want %v", got, want)
	}
	if !res.Published {
		t.Error("sampled range should detect the target in the same frame")
	}
	if _, ok := store.Get(hsvVals); ok {
		t.Error("bounds must not be published before the table latch is set")
	}

	// A remote request with every bound unset latches without changing the filter.
	store.PutBoolean(table.NewKeys(table.DefaultNamespace).Key(table.KeyHSVFromSD), true)
	drag(55, 55, 75, 75)
	res = l.Step(context.Background())
	if !l.Sync().Latched() {
		t.Fatal("expected latch after consuming a bounds request")
	}
	if got := filter.Range(); got != want {
		t.Errorf("filter = %v after unset request, want %v", got, want)
	}
	if !res.Sampled {
		t.Fatal("expected second sample")
	}
	got := store.GetNumberArray(hsvVals, nil)
	if len(got) != 6 || got[0] != 60 || got[5] != 255 {
		t.Errorf("published bounds %v, want %v", got, want.Array())
	}
}

func TestStepTelemetry(t *testing.T) {
	src := newFakeSource()
	defer src.Close()

	cfg := testConfig()
	cfg.Telemetry.Enabled = true
	l, store, _ := newLoop(t, cfg, src, green)

	res := l.Step(context.Background())
	if !res.Preview {
		t.Fatal("first frame should publish a preview")
	}
	keys := table.NewKeys(table.DefaultNamespace)
	for _, k := range []string{table.KeyImage, table.KeyThreshold} {
		if b, ok := store.GetRaw(keys.Key(k)); !ok || len(b) == 0 {
			t.Errorf("missing preview %q", k)
		}
	}

	// Rate limited on the immediate next frame.
	if res := l.Step(context.Background()); res.Preview {
		t.Error("preview should be rate limited")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := newFakeSource()
	defer src.Close()
	l, _, _ := newLoop(t, testConfig(), src, green)

	results := make(chan Result, 1)
	l.OnResult = func(r Result) {
		select {
		case results <- r:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("no frame processed")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
