// Package telemetry publishes rate-limited JPEG previews to the table.
package telemetry

import (
	"sync"
	"time"
)

// Limiter admits at most fps events per second.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	fired    bool
	now      func() time.Time
}

// NewLimiter creates a limiter for the target rate. fps <= 0 admits everything.
func NewLimiter(fps int) *Limiter {
	l := &Limiter{now: time.Now}
	if fps > 0 {
		l.interval = time.Second / time.Duration(fps)
	}
	return l
}

// Allow reports whether an event may fire now and, if so, records it.
// The first call always fires.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.fired && now.Sub(l.last) < l.interval {
		return false
	}
	l.last = now
	l.fired = true
	return true
}

// Interval returns the minimum spacing between events.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
