// Package table provides the key-value telemetry table shared between the
// vision process and the robot control system.
//
// Every backend keeps a local mirror so reads never block: a missing or
// mistyped entry returns the caller's default.
package table

import (
	"fmt"

	"github.com/teslashibe/go-goalvision/pkg/protocol"
)

// Value is a typed table entry.
type Value = protocol.Value

// Store is the table as seen by the vision pipeline.
type Store interface {
	GetNumber(key string, def float64) float64
	GetBoolean(key string, def bool) bool
	GetNumberArray(key string, def []float64) []float64
	GetRaw(key string) ([]byte, bool)

	PutNumber(key string, v float64) error
	PutBoolean(key string, v bool) error
	PutNumberArray(key string, v []float64) error
	PutRaw(key string, v []byte) error
}

// Backend is a Store that holds a connection.
type Backend interface {
	Store
	Close() error
}

// Entry names within the vision namespace.
const (
	KeyHMin = "H_MIN"
	KeyHMax = "H_MAX"
	KeySMin = "S_MIN"
	KeySMax = "S_MAX"
	KeyVMin = "V_MIN"
	KeyVMax = "V_MAX"

	KeyBrightness   = "Brightness"
	KeyContrast     = "Contrast"
	KeyHue          = "Hue"
	KeySaturation   = "Saturation"
	KeyGain         = "Gain"
	KeyExposure     = "Exposure"
	KeyWhiteBalance = "WhiteBalance"

	// Push requests, set by the control system and cleared once consumed.
	KeyHSVFromSD         = "HSVFromSD"
	KeyCamSettingsFromSD = "CamSettingsFromSD"

	// Bounds changed acknowledgement, set by the vision process.
	KeyHSVFromCore = "HSVFromCore"
	KeyHSVVals     = "HSVVals"

	KeyImage     = "hg_image"
	KeyThreshold = "hg_thresh"

	DefaultDetectionKey = "High Goal Pos"
	DefaultNamespace    = "Vision"
)

// Unset is the sentinel the control system writes for "keep the current value"
// (bounds) or "automatic" (camera settings).
const Unset = -1

// Keys builds fully-qualified table keys.
type Keys struct {
	namespace string
}

// NewKeys creates a Keys helper for the given namespace.
func NewKeys(namespace string) *Keys {
	return &Keys{namespace: namespace}
}

// Key returns the full path of an entry.
func (k *Keys) Key(name string) string {
	if k.namespace == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", k.namespace, name)
}

// Bounds returns the six bound keys in [HMin, HMax, SMin, SMax, VMin, VMax] order.
func (k *Keys) Bounds() [6]string {
	return [6]string{
		k.Key(KeyHMin), k.Key(KeyHMax),
		k.Key(KeySMin), k.Key(KeySMax),
		k.Key(KeyVMin), k.Key(KeyVMax),
	}
}

// Namespace returns the key prefix.
func (k *Keys) Namespace() string {
	return k.namespace
}
