// Package camera provides the capture device and its runtime-adjustable settings.
// This follows the same pattern as pkg/vision for tunable parameters.
package camera

// Config holds the capture configuration.
type Config struct {
	// === Device ===
	// DeviceID is the V4L2 index (0 for /dev/video0).
	DeviceID int `json:"device_id" yaml:"device_id"`

	// File replays a recorded video instead of opening a device.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// === Resolution ===
	Width     int `json:"width" yaml:"width"`         // Frame width in pixels
	Height    int `json:"height" yaml:"height"`       // Frame height in pixels
	Framerate int `json:"framerate" yaml:"framerate"` // Target FPS

	// === Orientation ===
	// Flip mirrors the frame for upside-down mounts.
	// Values: "", "horizontal", "vertical", "both"
	Flip string `json:"flip,omitempty" yaml:"flip,omitempty"`
}

// Capture limits for the USB cameras the robot uses
const (
	MaxWidth     = 1920
	MaxHeight    = 1080
	MaxFramerate = 120
)

// DefaultConfig returns the configuration tuned for target tracking.
// 640x480 keeps the full pipeline under the frame period on the coprocessor.
func DefaultConfig() Config {
	return Config{
		DeviceID:  0,
		Width:     640,
		Height:    480,
		Framerate: 30,
	}
}

// LegacyConfig returns the low-bandwidth 320x240 configuration.
// Use this on an overloaded coprocessor.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.File == "" && c.DeviceID < 0 {
		errors = append(errors, "device_id must be >= 0")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 1920")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 1080")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}

	validFlips := map[string]bool{"": true, "horizontal": true, "vertical": true, "both": true}
	if !validFlips[c.Flip] {
		errors = append(errors, "flip must be horizontal, vertical, or both")
	}

	return errors
}
