// Package debug provides global verbose tracing flags
package debug

import "fmt"

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls per-frame tracing (contour counts, selected blobs, sample sizes).
// Use --debug-frames to enable; it prints on every frame.
var Frames bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// FrameLog prints a message only if per-frame tracing is enabled
func FrameLog(format string, args ...interface{}) {
	if Frames {
		fmt.Printf(format, args...)
	}
}
