// Package depth measures the distance to a detected target.
package depth

import "math"

// Status classifies a depth measurement.
type Status int

const (
	Valid       Status = iota
	TooClose           // Below the sensor's minimum range
	TooFar             // Beyond the sensor's maximum range
	Unavailable        // No reading at this pixel
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case TooClose:
		return "too close"
	case TooFar:
		return "too far"
	default:
		return "unavailable"
	}
}

// Measure is a distance in meters with its status.
// Meters is only meaningful when Status is Valid.
type Measure struct {
	Meters float64
	Status Status
}

// OK reports whether the measure carries a usable distance.
func (m Measure) OK() bool {
	return m.Status == Valid
}

// Classify maps a raw sensor value to a measure.
// Depth maps encode too close as -Inf, too far as +Inf and no reading as NaN.
func Classify(v float64) Measure {
	switch {
	case math.IsNaN(v):
		return Measure{Status: Unavailable}
	case math.IsInf(v, -1):
		return Measure{Status: TooClose}
	case math.IsInf(v, 1):
		return Measure{Status: TooFar}
	case v <= 0:
		return Measure{Status: Unavailable}
	default:
		return Measure{Meters: v, Status: Valid}
	}
}

// Category returns a human-readable distance band for status displays.
func Category(m Measure) string {
	switch m.Status {
	case TooClose:
		return "too close"
	case TooFar:
		return "too far"
	case Unavailable:
		return "unknown"
	}
	switch d := m.Meters; {
	case d < 1.0:
		return "close"
	case d < 3.0:
		return "shooting range"
	case d < 6.0:
		return "far"
	default:
		return "very far"
	}
}
