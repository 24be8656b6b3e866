// Package vision provides color segmentation and blob selection for target tracking.
package vision

import "fmt"

// Defaults matching the tuned high goal pipeline.
const (
	DefaultMaxObjects       = 50
	DefaultMinObjectArea    = 1.0
	DefaultErodeKernel      = 3
	DefaultDilateKernel     = 8
	DefaultErodeIterations  = 2
	DefaultDilateIterations = 2

	// maxAreaDivisor rejects blobs covering most of the frame (a bad filter, not a target).
	maxAreaDivisor = 1.5
)

// Config holds the segmentation and selection parameters.
type Config struct {
	// Blob area limits (exclusive), in pixels.
	MinObjectArea float64 `yaml:"min_object_area" json:"min_object_area"`
	MaxObjectArea float64 `yaml:"max_object_area" json:"max_object_area"`

	// MaxObjects is the noise ceiling: more contours than this means the filter is too loose.
	MaxObjects int `yaml:"max_objects" json:"max_objects"`

	// Morphology
	Morphology       bool `yaml:"morphology" json:"morphology"`
	ErodeKernel      int  `yaml:"erode_kernel" json:"erode_kernel"`
	DilateKernel     int  `yaml:"dilate_kernel" json:"dilate_kernel"`
	ErodeIterations  int  `yaml:"erode_iterations" json:"erode_iterations"`
	DilateIterations int  `yaml:"dilate_iterations" json:"dilate_iterations"`
}

// DefaultConfig returns the production configuration for a frame of the given size.
func DefaultConfig(frameWidth, frameHeight int) Config {
	return Config{
		MinObjectArea:    DefaultMinObjectArea,
		MaxObjectArea:    float64(frameWidth*frameHeight) / maxAreaDivisor,
		MaxObjects:       DefaultMaxObjects,
		Morphology:       true,
		ErodeKernel:      DefaultErodeKernel,
		DilateKernel:     DefaultDilateKernel,
		ErodeIterations:  DefaultErodeIterations,
		DilateIterations: DefaultDilateIterations,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.MinObjectArea < 0 {
		return fmt.Errorf("min_object_area must be >= 0, got %v", c.MinObjectArea)
	}
	if c.MaxObjectArea <= c.MinObjectArea {
		return fmt.Errorf("max_object_area (%v) must exceed min_object_area (%v)", c.MaxObjectArea, c.MinObjectArea)
	}
	if c.MaxObjects < 1 {
		return fmt.Errorf("max_objects must be >= 1, got %d", c.MaxObjects)
	}
	if c.ErodeKernel < 1 {
		return fmt.Errorf("erode_kernel must be >= 1, got %d", c.ErodeKernel)
	}
	// Dilation must over-grow what erosion removed so fragments merge.
	if c.DilateKernel <= c.ErodeKernel {
		return fmt.Errorf("dilate_kernel (%d) must be larger than erode_kernel (%d)", c.DilateKernel, c.ErodeKernel)
	}
	if c.ErodeIterations < 0 || c.DilateIterations < 0 {
		return fmt.Errorf("morphology iterations must be >= 0")
	}
	return nil
}
