// Package tablesync keeps the color filter and camera controls in step with the
// telemetry table.
//
// The table is writable by several parties, so a plain write cannot be told
// apart from an echo. The control system raises a request flag after writing;
// this side consumes the values and clears the flag. Local bounds are only
// published after the control system has made at least one such request.
package tablesync

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-goalvision/pkg/camera"
	"github.com/teslashibe/go-goalvision/pkg/table"
	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// Sync couples a Filter to a table.Store.
type Sync struct {
	store  table.Store
	keys   *table.Keys
	filter *vision.Filter
	logger *slog.Logger

	mu      sync.Mutex
	latched bool
}

// New creates a sync over store using keys under namespace.
func New(store table.Store, namespace string, filter *vision.Filter, logger *slog.Logger) *Sync {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sync{
		store:  store,
		keys:   table.NewKeys(namespace),
		filter: filter,
		logger: logger.With("component", "tablesync"),
	}
}

// Latched reports whether the control system has requested a bounds pull at
// least once, which enables publishing local bounds.
func (s *Sync) Latched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched
}

// PullBounds consumes a pending bounds request. Fields holding the unset
// sentinel keep their local value. It reports whether a request was consumed.
func (s *Sync) PullBounds() bool {
	if !s.store.GetBoolean(s.keys.Key(table.KeyHSVFromSD), false) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.keys.Bounds()
	var remote [6]int
	for i, k := range keys {
		remote[i] = int(s.store.GetNumber(k, table.Unset))
	}

	before := s.filter.Range()
	after := s.filter.Update(func(r *vision.FilterRange) {
		fields := []*int{&r.HMin, &r.HMax, &r.SMin, &r.SMax, &r.VMin, &r.VMax}
		for i, f := range fields {
			if remote[i] == table.Unset {
				s.logger.Warn("bound not set remotely, keeping local value", "key", keys[i], "value", *f)
				continue
			}
			*f = remote[i]
		}
	})
	if after != before {
		s.logger.Info("bounds received from table", "range", after.String())
	}

	if err := s.store.PutBoolean(s.keys.Key(table.KeyHSVFromSD), false); err != nil {
		s.logger.Warn("failed to clear bounds request", "error", err)
	}

	if !s.latched {
		s.latched = true
		s.logger.Info("table is now authoritative, publishing local bounds")
	}
	return true
}

// PushBounds publishes r if the latch is set. It reports whether it published.
func (s *Sync) PushBounds(r vision.FilterRange) bool {
	if !s.Latched() {
		return false
	}
	if err := s.store.PutNumberArray(s.keys.Key(table.KeyHSVVals), r.Array()); err != nil {
		s.logger.Warn("failed to publish bounds", "error", err)
	}
	if err := s.store.PutBoolean(s.keys.Key(table.KeyHSVFromCore), true); err != nil {
		s.logger.Warn("failed to publish bounds flag", "error", err)
	}
	s.logger.Info("bounds published to table", "range", r.String())
	return true
}

// PullCameraSettings consumes a pending camera request and applies every control
// that differs from what dev last applied, whoever applied it. A missing or
// unset value selects auto. It reports whether a request was consumed.
func (s *Sync) PullCameraSettings(dev camera.Controls) bool {
	if !s.store.GetBoolean(s.keys.Key(table.KeyCamSettingsFromSD), false) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, setting := range camera.AllSettings {
		v := int(s.store.GetNumber(s.keys.Key(setting.Key()), camera.Auto))
		if v == dev.Applied(setting) {
			continue
		}
		if err := dev.SetSetting(setting, v, v == camera.Auto); err != nil {
			s.logger.Warn("failed to apply camera setting", "setting", setting.Key(), "value", v, "error", err)
			continue
		}
		s.logger.Info("camera setting received from table", "setting", setting.Key(), "value", v, "auto", v == camera.Auto)
	}

	if err := s.store.PutBoolean(s.keys.Key(table.KeyCamSettingsFromSD), false); err != nil {
		s.logger.Warn("failed to clear camera request", "error", err)
	}
	return true
}
