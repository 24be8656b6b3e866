package camera

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	// ErrOpenFailed is returned when the capture device cannot be opened.
	ErrOpenFailed = errors.New("camera: open failed")

	// ErrGrabFailed is returned when a frame could not be read.
	ErrGrabFailed = errors.New("camera: frame grab failed")

	// ErrUnknownSetting is returned for a setting the device does not expose.
	ErrUnknownSetting = errors.New("camera: unknown setting")
)

// Auto is the setting value that hands control back to the camera.
const Auto = -1

// Setting is an image control the control system may override.
type Setting int

const (
	Brightness Setting = iota
	Contrast
	Hue
	Saturation
	Gain
	Exposure
	WhiteBalance
)

// AllSettings lists every setting in table order.
var AllSettings = []Setting{Brightness, Contrast, Hue, Saturation, Gain, Exposure, WhiteBalance}

// Key returns the table entry name of the setting.
func (s Setting) Key() string {
	switch s {
	case Brightness:
		return "Brightness"
	case Contrast:
		return "Contrast"
	case Hue:
		return "Hue"
	case Saturation:
		return "Saturation"
	case Gain:
		return "Gain"
	case Exposure:
		return "Exposure"
	case WhiteBalance:
		return "WhiteBalance"
	default:
		return "unknown"
	}
}

func (s Setting) String() string {
	return s.Key()
}

// property returns the capture property the manual value is written to.
func (s Setting) property() (gocv.VideoCaptureProperties, bool) {
	switch s {
	case Brightness:
		return gocv.VideoCaptureBrightness, true
	case Contrast:
		return gocv.VideoCaptureContrast, true
	case Hue:
		return gocv.VideoCaptureHue, true
	case Saturation:
		return gocv.VideoCaptureSaturation, true
	case Gain:
		return gocv.VideoCaptureGain, true
	case Exposure:
		return gocv.VideoCaptureExposure, true
	case WhiteBalance:
		return gocv.VideoCaptureWBTemperature, true
	}
	return 0, false
}

// Source delivers color frames.
type Source interface {
	Read(dst *gocv.Mat) error
}

// DepthSource is implemented by sources that also deliver a CV_32FC1 depth map
// aligned with the last color frame.
type DepthSource interface {
	ReadDepth(dst *gocv.Mat) error
}

// SettingsApplier applies an image control. auto hands the control back to the camera.
type SettingsApplier interface {
	SetSetting(s Setting, value int, auto bool) error
}

// Controls is a SettingsApplier that remembers what it last applied.
type Controls interface {
	SettingsApplier
	Applied(s Setting) int
}
