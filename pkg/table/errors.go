package table

import "errors"

var (
	// ErrNotConnected is returned when a write cannot reach the remote peer.
	// The local mirror still holds the value.
	ErrNotConnected = errors.New("table: not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("table: closed")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("table: unknown backend")

	// ErrSlowPeer is returned when a peer's send queue is full. The peer is
	// disconnected.
	ErrSlowPeer = errors.New("table: slow peer")

	// ErrPublishTimeout is returned when the broker does not acknowledge a write in time.
	ErrPublishTimeout = errors.New("table: publish timeout")
)
