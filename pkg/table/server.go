package table

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-goalvision/pkg/protocol"
)

const (
	// peerSendBuffer is how many messages may queue for one peer before it
	// is dropped as slow.
	peerSendBuffer = 64

	// peerWriteTimeout bounds a single write to a peer socket.
	peerWriteTimeout = 2 * time.Second
)

// PeerConnection represents a connected table peer
type PeerConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(id string, conn *websocket.Conn) *PeerConnection {
	now := time.Now()
	return &PeerConnection{
		ID:        id,
		Conn:      conn,
		Connected: now,
		LastSeen:  now,
		send:      make(chan []byte, peerSendBuffer),
		done:      make(chan struct{}),
	}
}

// Send queues a message for the peer without blocking. A peer whose queue
// is full is closed and ErrSlowPeer is returned.
func (p *PeerConnection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.send <- data:
		return nil
	default:
		p.close()
		return ErrSlowPeer
	}
}

// close stops the writer and unblocks the reader. Safe to call repeatedly.
func (p *PeerConnection) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		if p.Conn != nil {
			p.Conn.Close()
		}
	})
}

// writePump drains the send queue onto the socket until the peer closes.
func (p *PeerConnection) writePump(logger *slog.Logger) {
	for {
		select {
		case <-p.done:
			return
		case data := <-p.send:
			p.Conn.SetWriteDeadline(time.Now().Add(peerWriteTimeout))
			if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("peer write error", "peer_id", p.ID, "error", err)
				p.close()
				return
			}
		}
	}
}

// Server hosts the table for WebSocket peers and REST clients.
// It is itself a Store, so an in-process writer is just another peer.
type Server struct {
	store  *Memory
	logger *slog.Logger

	mu    sync.RWMutex
	peers map[string]*PeerConnection

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	puts             atomic.Uint64
	dropped          atomic.Uint64
}

// NewServer creates a server over store. A nil store starts empty.
func NewServer(store *Memory, logger *slog.Logger) *Server {
	if store == nil {
		store = NewMemory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		logger: logger.With("component", "table_server"),
		peers:  make(map[string]*PeerConnection),
	}
}

// Memory returns the backing table.
func (s *Server) Memory() *Memory {
	return s.store
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (s *Server) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/table", websocket.New(s.handlePeer))
}

// handlePeer handles a peer WebSocket connection
func (s *Server) handlePeer(c *websocket.Conn) {
	peerID := c.Query("id")
	if peerID == "" {
		peerID = uuid.NewString()
	}

	peer := newPeer(peerID, c)

	s.mu.Lock()
	if prev, ok := s.peers[peerID]; ok {
		prev.close()
	}
	s.peers[peerID] = peer
	peerCount := len(s.peers)
	s.mu.Unlock()

	s.logger.Info("peer connected", "peer_id", peerID, "total", peerCount)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		peer.writePump(s.logger)
	}()

	defer func() {
		s.mu.Lock()
		if s.peers[peerID] == peer {
			delete(s.peers, peerID)
		}
		peerCount := len(s.peers)
		s.mu.Unlock()

		// The socket must not be written after the handler returns.
		peer.close()
		<-writerDone

		s.logger.Info("peer disconnected", "peer_id", peerID, "total", peerCount)
	}()

	snap, err := protocol.NewSnapshotMessage(s.store.Snapshot())
	if err == nil {
		if err := peer.Send(snap); err != nil {
			s.logger.Warn("snapshot send failed", "peer_id", peerID, "error", err)
			return
		}
		s.messagesSent.Add(1)
	}

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("peer read error", "peer_id", peerID, "error", err)
			return
		}

		peer.mu.Lock()
		peer.LastSeen = time.Now()
		peer.mu.Unlock()

		s.messagesReceived.Add(1)
		s.handleMessage(peer, data)
	}
}

// handleMessage processes an incoming message from a peer
func (s *Server) handleMessage(peer *PeerConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("parse error", "peer_id", peer.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypePut:
		put, err := msg.GetPutData()
		if err != nil {
			s.logger.Debug("bad put", "peer_id", peer.ID, "error", err)
			return
		}
		s.Put(peer.ID, put.Key, put.Value)

	case protocol.TypePing:
		pong, err := protocol.NewPongMessage(peer.ID, msg.Timestamp, time.Now().UnixMilli())
		if err == nil && peer.Send(pong) == nil {
			s.messagesSent.Add(1)
		}
	}
}

// Put stores an entry and forwards it to every peer except origin.
func (s *Server) Put(origin, key string, v Value) {
	s.store.Set(key, v)
	s.puts.Add(1)

	msg, err := protocol.NewPutMessage(key, v)
	if err != nil {
		return
	}
	s.broadcast(origin, msg)
}

func (s *Server) broadcast(origin string, msg *protocol.Message) {
	s.mu.RLock()
	peers := make([]*PeerConnection, 0, len(s.peers))
	for id, p := range s.peers {
		if id != origin {
			peers = append(peers, p)
		}
	}
	s.mu.RUnlock()

	for _, peer := range peers {
		if err := peer.Send(msg); err != nil {
			if errors.Is(err, ErrSlowPeer) {
				s.dropped.Add(1)
				s.logger.Warn("dropping slow peer", "peer_id", peer.ID)
				continue
			}
			s.logger.Debug("broadcast error", "peer_id", peer.ID, "error", err)
			continue
		}
		s.messagesSent.Add(1)
	}
}

// PeerCount returns the number of connected peers
func (s *Server) PeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// PeerInfo contains info about a connected peer
type PeerInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetPeerInfos returns info about all connected peers
func (s *Server) GetPeerInfos() []PeerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]PeerInfo, 0, len(s.peers))
	for _, p := range s.peers {
		p.mu.Lock()
		infos = append(infos, PeerInfo{
			ID:        p.ID,
			Connected: p.Connected,
			LastSeen:  p.LastSeen,
		})
		p.mu.Unlock()
	}
	return infos
}

// ServerStats contains server statistics
type ServerStats struct {
	PeerCount        int    `json:"peer_count"`
	Entries          int    `json:"entries"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	Puts             uint64 `json:"puts"`
	Dropped          uint64 `json:"dropped"`
}

// GetStats returns server statistics
func (s *Server) GetStats() ServerStats {
	return ServerStats{
		PeerCount:        s.PeerCount(),
		Entries:          s.store.Len(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSent:     s.messagesSent.Load(),
		Puts:             s.puts.Load(),
		Dropped:          s.dropped.Load(),
	}
}

// RegisterAPIRoutes registers REST routes for inspecting and editing the table
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	api.Get("/table", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"entries": s.store.Snapshot(),
			"count":   s.store.Len(),
		})
	})

	api.Get("/table/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.GetStats())
	})

	api.Get("/table/peers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"peers": s.GetPeerInfos(),
			"count": s.PeerCount(),
		})
	})

	// Keys contain slashes, so they are matched as a wildcard
	api.Get("/table/*", func(c *fiber.Ctx) error {
		key, err := url.PathUnescape(c.Params("*"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		v, ok := s.store.Get(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no such key"})
		}
		return c.JSON(fiber.Map{"key": key, "value": v})
	})

	api.Put("/table/*", func(c *fiber.Ctx) error {
		key, err := url.PathUnescape(c.Params("*"))
		if err != nil || key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid key"})
		}

		var v Value
		if err := json.Unmarshal(c.Body(), &v); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := v.Validate(); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		s.Put("", key, v)
		return c.JSON(fiber.Map{"status": "stored", "key": key})
	})
}

func (s *Server) GetNumber(key string, def float64) float64 { return s.store.GetNumber(key, def) }
func (s *Server) GetBoolean(key string, def bool) bool       { return s.store.GetBoolean(key, def) }
func (s *Server) GetRaw(key string) ([]byte, bool)           { return s.store.GetRaw(key) }
func (s *Server) GetNumberArray(key string, def []float64) []float64 {
	return s.store.GetNumberArray(key, def)
}

func (s *Server) PutNumber(key string, v float64) error {
	s.Put("", key, protocol.NumberValue(v))
	return nil
}

func (s *Server) PutBoolean(key string, v bool) error {
	s.Put("", key, protocol.BooleanValue(v))
	return nil
}

func (s *Server) PutNumberArray(key string, v []float64) error {
	s.Put("", key, protocol.NumberArrayValue(v))
	return nil
}

func (s *Server) PutRaw(key string, v []byte) error {
	s.Put("", key, protocol.RawValue(v))
	return nil
}
