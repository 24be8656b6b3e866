package vision

import (
	"fmt"
	"sync"
)

// channelMax is the largest value an 8-bit channel can hold.
const channelMax = 255

// FilterRange holds inclusive per-channel HSV bounds.
type FilterRange struct {
	HMin int `json:"h_min"`
	HMax int `json:"h_max"`
	SMin int `json:"s_min"`
	SMax int `json:"s_max"`
	VMin int `json:"v_min"`
	VMax int `json:"v_max"`
}

// OpenRange returns bounds that pass every pixel.
func OpenRange() FilterRange {
	return FilterRange{HMax: channelMax, SMax: channelMax, VMax: channelMax}
}

// RangeFromArray builds a range from [HMin, HMax, SMin, SMax, VMin, VMax].
func RangeFromArray(v []int) (FilterRange, error) {
	if len(v) != 6 {
		return FilterRange{}, fmt.Errorf("hsv range needs 6 values, got %d", len(v))
	}
	return FilterRange{
		HMin: v[0], HMax: v[1],
		SMin: v[2], SMax: v[3],
		VMin: v[4], VMax: v[5],
	}, nil
}

// Array returns the bounds in wire order [HMin, HMax, SMin, SMax, VMin, VMax].
func (r FilterRange) Array() []float64 {
	return []float64{
		float64(r.HMin), float64(r.HMax),
		float64(r.SMin), float64(r.SMax),
		float64(r.VMin), float64(r.VMax),
	}
}

// Contains reports whether a pixel lies inside every channel's bounds.
func (r FilterRange) Contains(h, s, v uint8) bool {
	return int(h) >= r.HMin && int(h) <= r.HMax &&
		int(s) >= r.SMin && int(s) <= r.SMax &&
		int(v) >= r.VMin && int(v) <= r.VMax
}

// Clamp limits every bound to [0,255] and swaps reversed pairs so min <= max.
func (r FilterRange) Clamp() FilterRange {
	r.HMin, r.HMax = clampPair(r.HMin, r.HMax)
	r.SMin, r.SMax = clampPair(r.SMin, r.SMax)
	r.VMin, r.VMax = clampPair(r.VMin, r.VMax)
	return r
}

func (r FilterRange) String() string {
	return fmt.Sprintf("H[%d,%d] S[%d,%d] V[%d,%d]", r.HMin, r.HMax, r.SMin, r.SMax, r.VMin, r.VMax)
}

func clampPair(lo, hi int) (int, int) {
	lo = clampChannel(lo)
	hi = clampChannel(hi)
	if lo > hi {
		return hi, lo
	}
	return lo, hi
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > channelMax {
		return channelMax
	}
	return v
}

// Filter owns the active FilterRange.
// The frame loop reads it every frame while calibration, the dashboard
// and the table sync may write it from other goroutines.
type Filter struct {
	mu sync.RWMutex
	r  FilterRange
}

// NewFilter creates a filter seeded with the given range.
func NewFilter(seed FilterRange) *Filter {
	return &Filter{r: seed.Clamp()}
}

// Range returns a copy of the current bounds.
func (f *Filter) Range() FilterRange {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.r
}

// Set replaces the bounds and returns the clamped value that was stored.
func (f *Filter) Set(r FilterRange) FilterRange {
	r = r.Clamp()
	f.mu.Lock()
	f.r = r
	f.mu.Unlock()
	return r
}

// Update applies fn to the current bounds atomically and stores the clamped result.
func (f *Filter) Update(fn func(r *FilterRange)) FilterRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.r
	fn(&next)
	f.r = next.Clamp()
	return f.r
}

// Clear resets the bounds to the degenerate all-zero range.
func (f *Filter) Clear() {
	f.mu.Lock()
	f.r = FilterRange{}
	f.mu.Unlock()
}
