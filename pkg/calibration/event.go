// Package calibration derives color filter bounds from an operator-selected region.
package calibration

import "image"

// EventKind identifies a pointer event.
type EventKind int

const (
	Press          EventKind = iota // Primary button down
	Move                            // Pointer moved
	Release                         // Primary button up
	SecondaryPress                  // Secondary button down: clear the filter
)

func (k EventKind) String() string {
	switch k {
	case Press:
		return "press"
	case Move:
		return "move"
	case Release:
		return "release"
	case SecondaryPress:
		return "secondary_press"
	default:
		return "unknown"
	}
}

// ParseEventKind maps a wire name to an event kind.
func ParseEventKind(s string) (EventKind, bool) {
	switch s {
	case "press", "down":
		return Press, true
	case "move":
		return Move, true
	case "release", "up":
		return Release, true
	case "secondary_press", "context":
		return SecondaryPress, true
	}
	return 0, false
}

// Event is a pointer event in display coordinates.
type Event struct {
	Kind EventKind `json:"kind"`
	X    int       `json:"x"`
	Y    int       `json:"y"`
}

// Scale maps display coordinates to native frame coordinates.
// A zero display size means the display shows the frame at native size.
type Scale struct {
	DisplayWidth, DisplayHeight int
	NativeWidth, NativeHeight   int
}

// Apply converts a display point to native resolution.
func (s Scale) Apply(x, y int) image.Point {
	if s.DisplayWidth <= 0 || s.DisplayHeight <= 0 {
		return image.Pt(x, y)
	}
	return image.Pt(x*s.NativeWidth/s.DisplayWidth, y*s.NativeHeight/s.DisplayHeight)
}
