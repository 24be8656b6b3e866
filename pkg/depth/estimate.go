package depth

import "fmt"

// WidthConfig calibrates the width-based estimator.
type WidthConfig struct {
	// TargetWidth is the real target width in meters.
	TargetWidth float64 `yaml:"target_width" json:"target_width"`

	// FocalLength is the horizontal focal length in pixels.
	FocalLength float64 `yaml:"focal_length" json:"focal_length"`

	// Working range; estimates outside it are reported as too close or too far.
	MinDistance float64 `yaml:"min_distance" json:"min_distance"`
	MaxDistance float64 `yaml:"max_distance" json:"max_distance"`
}

// DefaultWidthConfig returns values for a 15 inch high goal target seen
// through a 640 px wide camera with a ~60 degree field of view.
func DefaultWidthConfig() WidthConfig {
	return WidthConfig{
		TargetWidth: 0.381,
		FocalLength: 554,
		MinDistance: 0.3,
		MaxDistance: 10,
	}
}

// Validate checks the estimator calibration.
func (c *WidthConfig) Validate() error {
	if c.TargetWidth <= 0 {
		return fmt.Errorf("target_width must be > 0")
	}
	if c.FocalLength <= 0 {
		return fmt.Errorf("focal_length must be > 0")
	}
	if c.MinDistance < 0 || c.MaxDistance <= c.MinDistance {
		return fmt.Errorf("distance range [%v,%v] is invalid", c.MinDistance, c.MaxDistance)
	}
	return nil
}

// WidthEstimator approximates distance from the apparent width of a target
// of known size using the pinhole model: distance = focal * width / pixels.
type WidthEstimator struct {
	config WidthConfig
}

// NewWidthEstimator creates an estimator with the given calibration.
func NewWidthEstimator(cfg WidthConfig) *WidthEstimator {
	return &WidthEstimator{config: cfg}
}

// Estimate returns the distance for a blob pixelWidth pixels wide.
func (e *WidthEstimator) Estimate(pixelWidth int) Measure {
	if pixelWidth <= 0 {
		return Measure{Status: Unavailable}
	}
	d := e.config.FocalLength * e.config.TargetWidth / float64(pixelWidth)
	if d < e.config.MinDistance {
		return Measure{Status: TooClose}
	}
	if d > e.config.MaxDistance {
		return Measure{Status: TooFar}
	}
	return Measure{Meters: d, Status: Valid}
}
