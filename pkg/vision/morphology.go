package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// Cleaner removes speckle noise from a binary mask and consolidates blobs.
// Erosion always precedes dilation, and the dilate kernel is strictly larger.
type Cleaner struct {
	erode  gocv.Mat
	dilate gocv.Mat
	config Config
}

// NewCleaner builds the structuring elements for cfg.
func NewCleaner(cfg Config) *Cleaner {
	return &Cleaner{
		erode:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cfg.ErodeKernel, cfg.ErodeKernel)),
		dilate: gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cfg.DilateKernel, cfg.DilateKernel)),
		config: cfg,
	}
}

// Clean erodes then dilates the mask in place.
func (c *Cleaner) Clean(mask *gocv.Mat) {
	for i := 0; i < c.config.ErodeIterations; i++ {
		gocv.Erode(*mask, mask, c.erode)
	}
	for i := 0; i < c.config.DilateIterations; i++ {
		gocv.Dilate(*mask, mask, c.dilate)
	}
}

// Close releases the kernels.
func (c *Cleaner) Close() error {
	c.erode.Close()
	c.dilate.Close()
	return nil
}
