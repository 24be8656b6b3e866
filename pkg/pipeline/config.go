// Package pipeline runs the per-frame detection loop.
package pipeline

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-goalvision/pkg/depth"
	"github.com/teslashibe/go-goalvision/pkg/table"
	"github.com/teslashibe/go-goalvision/pkg/telemetry"
	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// Config holds the frame loop configuration.
type Config struct {
	// Namespace and entry name of the detection in the table.
	Namespace    string `yaml:"namespace" json:"namespace"`
	DetectionKey string `yaml:"detection_key" json:"detection_key"`

	// PublishWithoutDepth publishes [x, y, w, h] when a depth source exists
	// but cannot measure the target. Otherwise such frames publish nothing.
	PublishWithoutDepth bool `yaml:"publish_without_depth" json:"publish_without_depth"`

	// Overlay draws annotations on the published preview.
	Overlay bool `yaml:"overlay" json:"overlay"`

	// RetryDelay is the pause after a failed frame grab.
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`

	// Vision parameters. A zero MaxObjectArea is derived from the first frame.
	Vision vision.Config `yaml:"vision" json:"vision"`

	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`

	// EstimateDepth enables the width-based estimate when the source has no depth map.
	EstimateDepth bool              `yaml:"estimate_depth" json:"estimate_depth"`
	Width         depth.WidthConfig `yaml:"width" json:"width"`
}

// DefaultConfig returns the high goal configuration.
func DefaultConfig() Config {
	v := vision.DefaultConfig(0, 0)
	v.MaxObjectArea = 0
	return Config{
		Namespace:    table.DefaultNamespace,
		DetectionKey: table.DefaultDetectionKey,
		Overlay:      true,
		RetryDelay:   10 * time.Millisecond,
		Vision:       v,
		Telemetry:    telemetry.DefaultConfig(),
		Width:        depth.DefaultWidthConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DetectionKey == "" {
		return fmt.Errorf("detection_key is required")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0")
	}
	if c.Telemetry.Enabled {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	if c.EstimateDepth {
		if err := c.Width.Validate(); err != nil {
			return fmt.Errorf("width: %w", err)
		}
	}
	return nil
}
