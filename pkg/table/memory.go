package table

import (
	"slices"
	"sync"

	"github.com/teslashibe/go-goalvision/pkg/protocol"
)

// Memory is an in-process table. It is also the local mirror of the remote backends.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]Value
	listeners []func(key string, v Value)
}

// NewMemory creates an empty table.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Value)}
}

// Get returns the raw entry.
func (m *Memory) Get(key string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// Set stores an entry and notifies listeners.
func (m *Memory) Set(key string, v Value) {
	m.mu.Lock()
	m.entries[key] = v
	listeners := m.listeners
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(key, v)
	}
}

// OnChange registers a callback for every Set. Callbacks run on the writer's goroutine.
func (m *Memory) OnChange(fn func(key string, v Value)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Snapshot returns a copy of every entry.
func (m *Memory) Snapshot() map[string]Value {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Value, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Keys returns the sorted entry keys.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) GetNumber(key string, def float64) float64 {
	if v, ok := m.Get(key); ok && v.Kind == protocol.KindNumber {
		return v.Number
	}
	return def
}

func (m *Memory) GetBoolean(key string, def bool) bool {
	if v, ok := m.Get(key); ok && v.Kind == protocol.KindBoolean {
		return v.Boolean
	}
	return def
}

func (m *Memory) GetNumberArray(key string, def []float64) []float64 {
	if v, ok := m.Get(key); ok && v.Kind == protocol.KindNumberArray {
		return slices.Clone(v.Numbers)
	}
	return def
}

func (m *Memory) GetRaw(key string) ([]byte, bool) {
	if v, ok := m.Get(key); ok && v.Kind == protocol.KindRaw {
		return slices.Clone(v.Raw), true
	}
	return nil, false
}

func (m *Memory) PutNumber(key string, v float64) error {
	m.Set(key, protocol.NumberValue(v))
	return nil
}

func (m *Memory) PutBoolean(key string, v bool) error {
	m.Set(key, protocol.BooleanValue(v))
	return nil
}

func (m *Memory) PutNumberArray(key string, v []float64) error {
	m.Set(key, protocol.NumberArrayValue(v))
	return nil
}

func (m *Memory) PutRaw(key string, v []byte) error {
	m.Set(key, protocol.RawValue(v))
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
