package camera

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-goalvision/pkg/debug"
	"gocv.io/x/gocv"
)

// V4L2 auto exposure modes as OpenCV exposes them.
const (
	autoExposureManual = 0.25
	autoExposureOn     = 0.75
)

// Device is a gocv capture device.
type Device struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	capture  *gocv.VideoCapture
	defaults map[Setting]float64
}

// Open opens the device (or replay file) named by cfg and applies its resolution.
func Open(cfg Config, logger *slog.Logger) (*Device, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if cfg.File != "" {
		capture, err = gocv.VideoCaptureFile(cfg.File)
	} else {
		capture, err = gocv.VideoCaptureDevice(cfg.DeviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, ErrOpenFailed
	}

	if cfg.File == "" {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	d := &Device{
		cfg:      cfg,
		logger:   logger.With("component", "camera"),
		capture:  capture,
		defaults: make(map[Setting]float64),
	}

	// Power-on values, restored by auto for controls without an automatic mode.
	for _, s := range AllSettings {
		if prop, ok := s.property(); ok {
			d.defaults[s] = capture.Get(prop)
		}
	}

	d.logger.Info("camera opened",
		"device", cfg.DeviceID,
		"file", cfg.File,
		"width", int(capture.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	return d, nil
}

// Config returns the configuration the device was opened with.
func (d *Device) Config() Config {
	return d.cfg
}

// Read grabs the next frame into dst.
func (d *Device) Read(dst *gocv.Mat) error {
	d.mu.Lock()
	ok := d.capture.Read(dst)
	d.mu.Unlock()

	if !ok || dst.Empty() {
		return ErrGrabFailed
	}

	switch d.cfg.Flip {
	case "horizontal":
		gocv.Flip(*dst, dst, 1)
	case "vertical":
		gocv.Flip(*dst, dst, 0)
	case "both":
		gocv.Flip(*dst, dst, -1)
	}
	return nil
}

// SetSetting applies an image control.
func (d *Device) SetSetting(s Setting, value int, auto bool) error {
	prop, ok := s.property()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSetting, int(s))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	debug.Log("📷 %s = %d (auto=%v)\n", s.Key(), value, auto)

	switch s {
	case Exposure:
		if auto {
			d.capture.Set(gocv.VideoCaptureAutoExposure, autoExposureOn)
			return nil
		}
		d.capture.Set(gocv.VideoCaptureAutoExposure, autoExposureManual)
	case WhiteBalance:
		if auto {
			d.capture.Set(gocv.VideoCaptureAutoWB, 1)
			return nil
		}
		d.capture.Set(gocv.VideoCaptureAutoWB, 0)
	default:
		if auto {
			d.capture.Set(prop, d.defaults[s])
			return nil
		}
	}

	d.capture.Set(prop, float64(value))
	return nil
}

// ResetToAuto hands every control back to the camera.
func (d *Device) ResetToAuto() {
	for _, s := range AllSettings {
		if err := d.SetSetting(s, Auto, true); err != nil {
			d.logger.Warn("reset to auto failed", "setting", s.Key(), "error", err)
		}
	}
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capture.Close()
}
