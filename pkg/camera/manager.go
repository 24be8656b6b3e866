package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera configuration and the last applied
// image controls, and forwards control changes to the device.
type Manager struct {
	config  Config
	applier SettingsApplier
	applied map[Setting]int
	mu      sync.RWMutex
}

// NewManager creates a manager for a device opened with cfg.
// Every control starts in auto.
func NewManager(cfg Config, applier SettingsApplier) *Manager {
	applied := make(map[Setting]int, len(AllSettings))
	for _, s := range AllSettings {
		applied[s] = Auto
	}
	return &Manager{
		config:  cfg,
		applier: applier,
		applied: applied,
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetSetting applies one image control and records it.
func (m *Manager) SetSetting(s Setting, value int, auto bool) error {
	if auto {
		value = Auto
	}
	if m.applier != nil {
		if err := m.applier.SetSetting(s, value, auto); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.applied[s] = value
	m.mu.Unlock()
	return nil
}

// Applied returns the last value applied to s, or Auto.
func (m *Manager) Applied(s Setting) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.applied[s]
}

// ResetToAuto hands every control back to the camera.
func (m *Manager) ResetToAuto() error {
	for _, s := range AllSettings {
		if err := m.SetSetting(s, Auto, true); err != nil {
			return fmt.Errorf("reset %s: %w", s.Key(), err)
		}
	}
	return nil
}

// UpdateSettings applies controls keyed by table name.
// A value of -1 selects auto. Unknown keys are rejected before anything is applied.
func (m *Manager) UpdateSettings(params map[string]interface{}) error {
	type change struct {
		s Setting
		v int
	}
	var changes []change

	for key, value := range params {
		s, ok := settingByKey(key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
		}
		v, ok := toInt(value)
		if !ok {
			return fmt.Errorf("%s must be a number", key)
		}
		changes = append(changes, change{s, v})
	}

	for _, c := range changes {
		if err := m.SetSetting(c.s, c.v, c.v == Auto); err != nil {
			return err
		}
	}
	return nil
}

// Settings returns the applied controls keyed by table name.
func (m *Manager) Settings() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.applied))
	for s, v := range m.applied {
		out[s.Key()] = v
	}
	return out
}

// GetConfigJSON returns the capture config and applied controls as a map for
// JSON serialization. Controls are under "settings".
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	// Convert to map via JSON for consistent serialization
	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	result["settings"] = m.Settings()
	return result
}

func settingByKey(key string) (Setting, bool) {
	for _, s := range AllSettings {
		if s.Key() == key {
			return s, true
		}
	}
	return 0, false
}

// Helper functions for type conversion

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
