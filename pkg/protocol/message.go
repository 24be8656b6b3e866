// Package protocol defines the WebSocket message types for the telemetry table.
// It is shared between the vision process (table client) and the table server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server and Server → Client
	TypePut MessageType = "put" // Single entry write

	// Server → Client
	TypeSnapshot MessageType = "snapshot" // Every entry, sent on connect

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Table values
// =============================================================================

// ValueKind identifies the type stored under a table key
type ValueKind string

const (
	KindNumber      ValueKind = "number"
	KindBoolean     ValueKind = "boolean"
	KindNumberArray ValueKind = "number_array"
	KindRaw         ValueKind = "raw"
)

// Value is a typed table entry. Only the field matching Kind is meaningful.
type Value struct {
	Kind    ValueKind `json:"kind" msgpack:"kind"`
	Number  float64   `json:"number,omitempty" msgpack:"number,omitempty"`
	Boolean bool      `json:"boolean,omitempty" msgpack:"boolean,omitempty"`
	Numbers []float64 `json:"numbers,omitempty" msgpack:"numbers,omitempty"`
	Raw     []byte    `json:"raw,omitempty" msgpack:"raw,omitempty"` // base64 in JSON
}

// NumberValue wraps a number
func NumberValue(v float64) Value { return Value{Kind: KindNumber, Number: v} }

// BooleanValue wraps a boolean
func BooleanValue(v bool) Value { return Value{Kind: KindBoolean, Boolean: v} }

// NumberArrayValue wraps a number array, copying it
func NumberArrayValue(v []float64) Value {
	return Value{Kind: KindNumberArray, Numbers: append([]float64(nil), v...)}
}

// RawValue wraps raw bytes, copying them
func RawValue(v []byte) Value {
	return Value{Kind: KindRaw, Raw: append([]byte(nil), v...)}
}

// Validate checks the kind is known
func (v Value) Validate() error {
	switch v.Kind {
	case KindNumber, KindBoolean, KindNumberArray, KindRaw:
		return nil
	}
	return fmt.Errorf("unknown value kind %q", v.Kind)
}

// =============================================================================
// Message payloads
// =============================================================================

// PutData is a single entry write
type PutData struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// SnapshotData carries the full table
type SnapshotData struct {
	Entries map[string]Value `json:"entries"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
