package table

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-goalvision/pkg/protocol"
)

// Client is a table server peer. Reads are served from a local mirror fed by
// a reader goroutine; writes update the mirror and are sent to the server.
type Client struct {
	cfg    Config
	logger *slog.Logger
	mirror *Memory
	id     string

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc

	// Stats
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	reconnectCount   atomic.Int64
}

// NewClient creates a table client.
// Call Connect or ConnectWithRetry to join the server.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("invalid config: url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "table_client"),
		mirror: NewMemory(),
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// ID returns the peer ID the client registers with.
func (c *Client) ID() string {
	return c.id
}

// Connect dials the server and starts the reader. The dial runs without
// holding the connection lock so puts fail fast with ErrNotConnected
// instead of waiting on the handshake.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.RLock()
	closed, connected := c.closed, c.conn != nil
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if connected {
		return nil // Already connected
	}

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid table url: %w", err)
	}
	q := u.Query()
	q.Set("id", c.id)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("table connect failed: %w", err)
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	case c.conn != nil:
		// Lost a race with another Connect.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("connected to table", "url", c.cfg.URL, "peer_id", c.id)

	go c.readLoop(conn)
	return nil
}

// ConnectWithRetry connects with automatic retry on failure.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.Connect(ctx)
		if err == nil {
			return nil
		}

		attempts++
		c.reconnectCount.Add(1)

		if c.cfg.MaxReconnectAttempts > 0 && attempts >= c.cfg.MaxReconnectAttempts {
			return fmt.Errorf("max reconnect attempts (%d) reached: %w", c.cfg.MaxReconnectAttempts, err)
		}

		c.logger.Warn("table connection failed, retrying",
			"error", err,
			"attempt", attempts,
			"retry_in", c.cfg.ReconnectInterval,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

// IsConnected returns true if the client has a live connection.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.closed
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.dropConn(conn, err)
			return
		}
		c.messagesReceived.Add(1)
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		c.logger.Debug("bad table message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypePut:
		put, err := msg.GetPutData()
		if err != nil {
			c.logger.Debug("bad put", "error", err)
			return
		}
		c.mirror.Set(put.Key, put.Value)

	case protocol.TypeSnapshot:
		snap, err := msg.GetSnapshotData()
		if err != nil {
			c.logger.Debug("bad snapshot", "error", err)
			return
		}
		for k, v := range snap.Entries {
			c.mirror.Set(k, v)
		}
		c.logger.Debug("table snapshot received", "entries", len(snap.Entries))

	case protocol.TypePing:
		pong, err := protocol.NewPongMessage(c.id, msg.Timestamp, time.Now().UnixMilli())
		if err == nil {
			_ = c.send(pong)
		}
	}
}

// dropConn forgets a failed connection and reconnects in the background.
func (c *Client) dropConn(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	closed := c.closed
	c.mu.Unlock()
	conn.Close()

	if closed {
		return
	}
	c.logger.Warn("table connection lost, reconnecting", "error", err)
	go func() {
		if err := c.ConnectWithRetry(c.ctx); err != nil && c.ctx.Err() == nil {
			c.logger.Error("table reconnect gave up", "error", err)
		}
	}()
}

func (c *Client) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("table write failed: %w", err)
	}
	c.messagesSent.Add(1)
	return nil
}

func (c *Client) put(key string, v Value) error {
	c.mirror.Set(key, v)
	msg, err := protocol.NewPutMessage(key, v)
	if err != nil {
		return err
	}
	return c.send(msg)
}

func (c *Client) GetNumber(key string, def float64) float64 { return c.mirror.GetNumber(key, def) }
func (c *Client) GetBoolean(key string, def bool) bool       { return c.mirror.GetBoolean(key, def) }
func (c *Client) GetRaw(key string) ([]byte, bool)           { return c.mirror.GetRaw(key) }
func (c *Client) GetNumberArray(key string, def []float64) []float64 {
	return c.mirror.GetNumberArray(key, def)
}

func (c *Client) PutNumber(key string, v float64) error {
	return c.put(key, protocol.NumberValue(v))
}

func (c *Client) PutBoolean(key string, v bool) error {
	return c.put(key, protocol.BooleanValue(v))
}

func (c *Client) PutNumberArray(key string, v []float64) error {
	return c.put(key, protocol.NumberArrayValue(v))
}

func (c *Client) PutRaw(key string, v []byte) error {
	return c.put(key, protocol.RawValue(v))
}

// Stats contains client statistics
type Stats struct {
	Connected        bool  `json:"connected"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	Reconnects       int64 `json:"reconnects"`
	Entries          int   `json:"entries"`
}

// Stats returns client statistics.
func (c *Client) Stats() Stats {
	return Stats{
		Connected:        c.IsConnected(),
		MessagesSent:     c.messagesSent.Load(),
		MessagesReceived: c.messagesReceived.Load(),
		Reconnects:       c.reconnectCount.Load(),
		Entries:          c.mirror.Len(),
	}
}

// Close disconnects and stops reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		return conn.Close()
	}
	return nil
}
