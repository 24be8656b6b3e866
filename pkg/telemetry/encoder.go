package telemetry

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/teslashibe/go-goalvision/pkg/table"
	"gocv.io/x/gocv"
)

// ErrEncode is returned when a preview cannot be compressed.
var ErrEncode = errors.New("telemetry: jpeg encode failed")

// Config holds preview publication parameters.
type Config struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	FPS     int  `yaml:"fps" json:"fps"`         // Target publish rate
	Width   int  `yaml:"width" json:"width"`     // Preview width in pixels
	Height  int  `yaml:"height" json:"height"`   // Preview height in pixels
	Quality int  `yaml:"quality" json:"quality"` // JPEG quality 1-100
}

// DefaultConfig returns the low-bandwidth preview used on the field.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		FPS:     15,
		Width:   320,
		Height:  180,
		Quality: 80,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.FPS < 1 {
		return fmt.Errorf("fps must be >= 1, got %d", c.FPS)
	}
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("preview size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}
	return nil
}

// Encoder downsamples and compresses frames for the table.
type Encoder struct {
	cfg     Config
	store   table.Store
	keys    *table.Keys
	limiter *Limiter
	logger  *slog.Logger
	small   gocv.Mat

	// OnFrame receives every published preview, e.g. for the dashboard.
	OnFrame func(name string, jpeg []byte)
}

// NewEncoder creates an encoder writing under namespace in store.
func NewEncoder(cfg Config, store table.Store, namespace string, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{
		cfg:     cfg,
		store:   store,
		keys:    table.NewKeys(namespace),
		limiter: NewLimiter(cfg.FPS),
		logger:  logger.With("component", "telemetry"),
		small:   gocv.NewMat(),
	}
}

// Publish sends the frame and the mask if the rate limit allows.
// It reports whether a preview was published.
func (e *Encoder) Publish(frame, mask gocv.Mat) (bool, error) {
	if !e.cfg.Enabled || !e.limiter.Allow() {
		return false, nil
	}

	if err := e.publish(table.KeyImage, frame); err != nil {
		return false, err
	}
	if !mask.Empty() {
		if err := e.publish(table.KeyThreshold, mask); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (e *Encoder) publish(name string, img gocv.Mat) error {
	data, err := e.Encode(img)
	if err != nil {
		return err
	}
	if err := e.store.PutRaw(e.keys.Key(name), data); err != nil {
		e.logger.Debug("preview write failed", "key", name, "error", err)
	}
	if e.OnFrame != nil {
		e.OnFrame(name, data)
	}
	return nil
}

// Encode resizes img to the preview size and compresses it.
func (e *Encoder) Encode(img gocv.Mat) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrEncode)
	}
	gocv.Resize(img, &e.small, image.Pt(e.cfg.Width, e.cfg.Height), 0, 0, gocv.InterpolationLinear)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, e.small, []int{gocv.IMWriteJpegQuality, e.cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	defer buf.Close()

	// The native buffer is freed on Close, so copy out.
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Close releases the scratch image.
func (e *Encoder) Close() error {
	return e.small.Close()
}
