// Package presets loads named color ranges and describes the known field targets.
package presets

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/teslashibe/go-goalvision/pkg/vision"
	"gopkg.in/yaml.v3"
)

// Range is a named HSV range as stored on disk.
type Range struct {
	Name     string `yaml:"name"`
	HSVRange []int  `yaml:"hsv_range"` // [HMin, HMax, SMin, SMax, VMin, VMax]
}

// FilterRange converts the stored values.
func (r Range) FilterRange() (vision.FilterRange, error) {
	fr, err := vision.RangeFromArray(r.HSVRange)
	if err != nil {
		return vision.FilterRange{}, fmt.Errorf("preset %q: %w", r.Name, err)
	}
	return fr.Clamp(), nil
}

// File is the on-disk preset document.
type File struct {
	HSVRanges []Range `yaml:"hsv_ranges"`
}

// Load reads presets from path. A missing file yields no presets and no error.
func Load(path string) ([]Range, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	for _, r := range f.HSVRanges {
		if r.Name == "" {
			return nil, fmt.Errorf("preset without a name")
		}
		if _, err := r.FilterRange(); err != nil {
			return nil, err
		}
	}
	return f.HSVRanges, nil
}

// Save writes presets to path.
func Save(path string, ranges []Range) error {
	data, err := yaml.Marshal(File{HSVRanges: ranges})
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	return nil
}

// FromFilter captures a filter range as a named preset.
func FromFilter(name string, r vision.FilterRange) Range {
	return Range{
		Name:     name,
		HSVRange: []int{r.HMin, r.HMax, r.SMin, r.SMax, r.VMin, r.VMax},
	}
}

// Upsert replaces the preset with r's name, or appends r.
func Upsert(ranges []Range, r Range) []Range {
	out := make([]Range, 0, len(ranges)+1)
	replaced := false
	for _, existing := range ranges {
		if existing.Name == r.Name {
			out = append(out, r)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, r)
	}
	return out
}

// SaveRange upserts r into the preset file at path. An existing file that
// does not parse is left untouched and its error returned.
func SaveRange(path string, r Range) error {
	ranges, err := Load(path)
	if err != nil {
		return fmt.Errorf("refusing to overwrite %s: %w", path, err)
	}
	return Save(path, Upsert(ranges, r))
}

// Seed returns the range named name, or the open range when there is none.
func Seed(ranges []Range, name string) vision.FilterRange {
	for _, r := range ranges {
		if r.Name != name {
			continue
		}
		if fr, err := r.FilterRange(); err == nil {
			return fr
		}
	}
	return vision.OpenRange()
}

// Goal describes a field target.
type Goal struct {
	Name string

	// Overlay is the color used to draw the target on previews.
	Overlay color.RGBA

	// Physical size in inches.
	Width, Height float64

	// DetectionKey is the table entry the detection is published under.
	DetectionKey string
}

// Aspect returns width over height.
func (g Goal) Aspect() float64 {
	if g.Height == 0 {
		return 0
	}
	return g.Width / g.Height
}

// WidthMeters returns the physical width in meters.
func (g Goal) WidthMeters() float64 {
	return g.Width * 0.0254
}

// Built-in goals
var (
	HighGoal = Goal{
		Name:         "high_goal",
		Overlay:      color.RGBA{G: 255, A: 255},
		Width:        15,
		Height:       5,
		DetectionKey: "High Goal Pos",
	}
	GearPeg = Goal{
		Name:         "gear_peg",
		Overlay:      color.RGBA{R: 255, G: 255, A: 255},
		Width:        5,
		Height:       15,
		DetectionKey: "Gear Peg Pos",
	}
)

// Goals returns the built-in goals by name.
func Goals() map[string]Goal {
	return map[string]Goal{
		HighGoal.Name: HighGoal,
		GearPeg.Name:  GearPeg,
	}
}

// GetGoal returns a built-in goal by name.
func GetGoal(name string) (Goal, bool) {
	g, ok := Goals()[name]
	return g, ok
}
