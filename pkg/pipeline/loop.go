package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-goalvision/pkg/calibration"
	"github.com/teslashibe/go-goalvision/pkg/camera"
	"github.com/teslashibe/go-goalvision/pkg/debug"
	"github.com/teslashibe/go-goalvision/pkg/depth"
	"github.com/teslashibe/go-goalvision/pkg/overlay"
	"github.com/teslashibe/go-goalvision/pkg/table"
	"github.com/teslashibe/go-goalvision/pkg/tablesync"
	"github.com/teslashibe/go-goalvision/pkg/telemetry"
	"github.com/teslashibe/go-goalvision/pkg/vision"
	"gocv.io/x/gocv"
)

// Deps are the collaborators of the loop.
type Deps struct {
	Source camera.Source
	Store  table.Store
	Filter *vision.Filter

	// Optional
	Settings camera.Controls
	Sampler  *calibration.Sampler
	Drawer   *overlay.Drawer
}

// Result describes one iteration.
type Result struct {
	Err       error // Frame grab failure; nothing else ran
	Selection vision.Selection
	Report    vision.Report
	Depth     depth.Measure
	HasDepth  bool // A depth measurement was attempted
	Published bool // Detection written to the table
	Sampled   bool // Calibration derived new bounds
	Range     vision.FilterRange
	Preview   bool // Telemetry preview written
}

// Stats are running counters.
type Stats struct {
	Frames     uint64  `json:"frames"`
	Detections uint64  `json:"detections"`
	GrabErrors uint64  `json:"grab_errors"`
	FPS        float64 `json:"fps"`
}

// Loop owns the per-frame buffers and runs one detection per frame.
type Loop struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	keys      *table.Keys
	sync      *tablesync.Sync
	cleaner   *vision.Cleaner
	selector  *vision.Selector
	encoder   *telemetry.Encoder
	estimator *depth.WidthEstimator
	depthSrc  camera.DepthSource

	frame, hsv, mask, depthMap gocv.Mat

	frames     atomic.Uint64
	detections atomic.Uint64
	grabErrors atomic.Uint64

	mu       sync.Mutex
	fps      float64
	lastStep time.Time

	// OnResult is called after every iteration, on the loop goroutine.
	OnResult func(Result)
}

// New creates a loop.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Source == nil || deps.Store == nil || deps.Filter == nil {
		return nil, fmt.Errorf("source, store and filter are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loop{
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With("component", "pipeline"),
		keys:     table.NewKeys(cfg.Namespace),
		sync:     tablesync.New(deps.Store, cfg.Namespace, deps.Filter, logger),
		cleaner:  vision.NewCleaner(cfg.Vision),
		frame:    gocv.NewMat(),
		hsv:      gocv.NewMat(),
		mask:     gocv.NewMat(),
		depthMap: gocv.NewMat(),
	}
	if ds, ok := deps.Source.(camera.DepthSource); ok {
		l.depthSrc = ds
	} else if cfg.EstimateDepth {
		l.estimator = depth.NewWidthEstimator(cfg.Width)
	}
	if cfg.Telemetry.Enabled {
		l.encoder = telemetry.NewEncoder(cfg.Telemetry, deps.Store, cfg.Namespace, logger)
	}
	return l, nil
}

// Sync returns the table sync state.
func (l *Loop) Sync() *tablesync.Sync {
	return l.sync
}

// Encoder returns the preview encoder, or nil when telemetry is disabled.
func (l *Loop) Encoder() *telemetry.Encoder {
	return l.encoder
}

// Run iterates until ctx is cancelled. Cancellation is checked between frames.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("frame loop started", "detection_key", l.keys.Key(l.cfg.DetectionKey))
	defer l.logger.Info("frame loop stopped", "frames", l.frames.Load())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		res := l.Step(ctx)
		if res.Err != nil && l.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.cfg.RetryDelay):
			}
		}
	}
}

// Step runs one iteration.
func (l *Loop) Step(ctx context.Context) Result {
	var res Result

	l.sync.PullBounds()
	if l.deps.Settings != nil {
		l.sync.PullCameraSettings(l.deps.Settings)
	}

	if err := l.deps.Source.Read(&l.frame); err != nil {
		l.grabErrors.Add(1)
		debug.FrameLog("📷 grab failed: %v\n", err)
		res.Err = err
		l.emit(res)
		return res
	}
	l.frames.Add(1)
	l.tick()

	if l.selector == nil {
		vcfg := l.cfg.Vision
		if vcfg.MaxObjectArea == 0 {
			vcfg.MaxObjectArea = vision.DefaultConfig(l.frame.Cols(), l.frame.Rows()).MaxObjectArea
		}
		l.selector = vision.NewSelector(vcfg)
	}

	vision.ToHSV(l.frame, &l.hsv)

	if l.deps.Sampler != nil {
		if r, ok := l.deps.Sampler.Sample(vision.MatPixels{Mat: l.hsv}); ok {
			res.Sampled = true
			l.sync.PushBounds(r)
		}
	}

	res.Range = l.deps.Filter.Range()
	vision.Threshold(l.hsv, res.Range, &l.mask)
	if l.cfg.Vision.Morphology {
		l.cleaner.Clean(&l.mask)
	}

	res.Selection = l.selector.Select(l.mask)
	if res.Selection.Found {
		l.detections.Add(1)
		l.publishDetection(&res)
	}

	if l.deps.Drawer != nil && (l.cfg.Overlay || l.deps.Sampler != nil) {
		f := overlay.Frame{
			Selection: res.Selection,
			Report:    res.Report,
			Depth:     res.Depth,
			HasDepth:  res.HasDepth,
			Filter:    res.Range,
			Latched:   l.sync.Latched(),
			FPS:       l.FPS(),
		}
		if l.deps.Sampler != nil {
			f.Drag, f.Dragging = l.deps.Sampler.DragRect()
		}
		l.deps.Drawer.Draw(&l.frame, f)
	}

	if l.encoder != nil {
		published, err := l.encoder.Publish(l.frame, l.mask)
		if err != nil {
			l.logger.Debug("preview failed", "error", err)
		}
		res.Preview = published
	}

	l.emit(res)
	return res
}

func (l *Loop) publishDetection(res *Result) {
	res.Report = vision.NewReport(res.Selection.Blob)

	switch {
	case l.depthSrc != nil:
		res.HasDepth = true
		if err := l.depthSrc.ReadDepth(&l.depthMap); err != nil {
			res.Depth = depth.Measure{Status: depth.Unavailable}
		} else {
			res.Depth = depth.NewMapSampler(l.depthMap).DepthAt(res.Report.X, res.Report.Y)
		}
	case l.estimator != nil:
		res.HasDepth = true
		res.Depth = l.estimator.Estimate(res.Report.Width)
	}

	if res.HasDepth {
		if res.Depth.OK() {
			res.Report = res.Report.WithDepth(res.Depth.Meters)
		} else if !l.cfg.PublishWithoutDepth {
			debug.FrameLog("📏 target at (%d,%d) but depth %s, not published\n", res.Report.X, res.Report.Y, res.Depth.Status)
			return
		}
	}

	if err := l.deps.Store.PutNumberArray(l.keys.Key(l.cfg.DetectionKey), res.Report.Values()); err != nil {
		l.logger.Debug("detection write failed", "error", err)
		return
	}
	res.Published = true
}

func (l *Loop) emit(res Result) {
	if l.OnResult != nil {
		l.OnResult(res)
	}
}

// tick updates the smoothed frame rate.
func (l *Loop) tick() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.lastStep.IsZero() {
		if dt := now.Sub(l.lastStep).Seconds(); dt > 0 {
			inst := 1 / dt
			if l.fps == 0 {
				l.fps = inst
			} else {
				l.fps = 0.9*l.fps + 0.1*inst
			}
		}
	}
	l.lastStep = now
}

// FPS returns the smoothed processing rate.
func (l *Loop) FPS() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fps
}

// Stats returns running counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:     l.frames.Load(),
		Detections: l.detections.Load(),
		GrabErrors: l.grabErrors.Load(),
		FPS:        l.FPS(),
	}
}

// Close releases the frame buffers.
func (l *Loop) Close() error {
	if l.encoder != nil {
		l.encoder.Close()
	}
	l.cleaner.Close()
	l.frame.Close()
	l.hsv.Close()
	l.mask.Close()
	l.depthMap.Close()
	return nil
}
