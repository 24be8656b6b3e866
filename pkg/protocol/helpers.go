package protocol

import "fmt"

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewPutMessage creates an entry write message
func NewPutMessage(key string, value Value) (*Message, error) {
	if key == "" {
		return nil, fmt.Errorf("put message needs a key")
	}
	if err := value.Validate(); err != nil {
		return nil, err
	}
	return NewMessage(TypePut, PutData{Key: key, Value: value})
}

// NewSnapshotMessage creates a full table message
func NewSnapshotMessage(entries map[string]Value) (*Message, error) {
	if entries == nil {
		entries = map[string]Value{}
	}
	return NewMessage(TypeSnapshot, SnapshotData{Entries: entries})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: ts})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for extracting data
// =============================================================================

// GetPutData extracts an entry write from a message
func (m *Message) GetPutData() (*PutData, error) {
	var data PutData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	if err := data.Value.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSnapshotData extracts the full table from a message
func (m *Message) GetSnapshotData() (*SnapshotData, error) {
	var data SnapshotData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
