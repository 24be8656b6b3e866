package table

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-goalvision/pkg/protocol"
)

func TestAPIGetTable(t *testing.T) {
	s := NewServer(nil, nil)
	s.PutNumber("Vision/H_MIN", 30)
	app := NewApp(s)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/table", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Vision/H_MIN") {
		t.Errorf("body %s should contain the key", body)
	}
}

func TestAPIGetKey(t *testing.T) {
	s := NewServer(nil, nil)
	s.PutBoolean("Vision/HSVFromSD", true)
	app := NewApp(s)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"existing", "/api/table/Vision/HSVFromSD", 200},
		{"missing", "/api/table/Vision/nothing", 404},
		{"escaped space", "/api/table/High%20Goal%20Pos", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			if err != nil {
				t.Fatalf("Request error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestAPIPutKey(t *testing.T) {
	s := NewServer(nil, nil)
	app := NewApp(s)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"number", `{"kind":"number","number":-1}`, 200},
		{"bad json", `{"kind":`, 400},
		{"unknown kind", `{"kind":"string"}`, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PUT", "/api/table/Vision/H_MAX", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Request error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	if got := s.GetNumber("Vision/H_MAX", 0); got != -1 {
		t.Errorf("stored value = %v, want -1", got)
	}
	if got := s.GetStats().Puts; got != 1 {
		t.Errorf("Puts = %d, want 1", got)
	}
}

func TestServerSnapshotAndBroadcast(t *testing.T) {
	s := NewServer(nil, nil)
	s.PutNumber("Vision/S_MIN", 50)
	app := NewApp(s)

	go app.Listen(":18110")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18110/ws/table?id=dashboard", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// First message is the snapshot
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	var msg protocol.Message
	json.Unmarshal(data, &msg)
	if msg.Type != protocol.TypeSnapshot {
		t.Fatalf("Type = %s, want snapshot", msg.Type)
	}
	snap, _ := msg.GetSnapshotData()
	if snap.Entries["Vision/S_MIN"].Number != 50 {
		t.Errorf("snapshot S_MIN = %v, want 50", snap.Entries["Vision/S_MIN"].Number)
	}

	if s.PeerCount() != 1 {
		t.Errorf("PeerCount = %d, want 1", s.PeerCount())
	}

	// A server-side write reaches the peer
	s.PutBoolean("Vision/HSVFromCore", true)
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	parsed, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	put, err := parsed.GetPutData()
	if err != nil {
		t.Fatalf("GetPutData error: %v", err)
	}
	if put.Key != "Vision/HSVFromCore" || !put.Value.Boolean {
		t.Errorf("put = %+v", put)
	}
}

func TestClientServerRoundTrip(t *testing.T) {
	s := NewServer(nil, nil)
	s.PutBoolean("Vision/HSVFromSD", true)
	app := NewApp(s)

	go app.Listen(":18111")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.URL = "ws://localhost:18111/ws/table"
	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer c.Close()

	if err := c.Connect(t.Context()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	waitFor(t, func() bool { return c.GetBoolean("Vision/HSVFromSD", false) })

	if err := c.PutBoolean("Vision/HSVFromSD", false); err != nil {
		t.Fatalf("PutBoolean error: %v", err)
	}
	if c.GetBoolean("Vision/HSVFromSD", true) {
		t.Error("local mirror should reflect the write immediately")
	}
	waitFor(t, func() bool { return !s.GetBoolean("Vision/HSVFromSD", true) })

	// Writes from the server side reach the client mirror
	s.PutNumber("Vision/H_MIN", 12)
	waitFor(t, func() bool { return c.GetNumber("Vision/H_MIN", Unset) == 12 })

	if !c.Stats().Connected {
		t.Error("client should report connected")
	}
}

func TestClientWriteWhileDisconnected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "ws://localhost:1/ws/table"
	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer c.Close()

	if err := c.PutNumber("k", 1); err != ErrNotConnected {
		t.Errorf("PutNumber error = %v, want ErrNotConnected", err)
	}
	if got := c.GetNumber("k", 0); got != 1 {
		t.Errorf("mirror = %v, want 1", got)
	}
}

func TestClientWriteWhileDialing(t *testing.T) {
	// Accepts TCP but never answers the WebSocket handshake.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	cfg := DefaultConfig()
	cfg.URL = "ws://" + ln.Addr().String() + "/ws/table"
	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	dialing := make(chan struct{})
	go func() {
		defer close(dialing)
		c.Connect(ctx)
	}()
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	err = c.PutNumberArray("Vision/High Goal Pos", []float64{1, 2, 3})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("PutNumberArray blocked for %v while dialing", elapsed)
	}
	if err != ErrNotConnected {
		t.Errorf("PutNumberArray error = %v, want ErrNotConnected", err)
	}
	if got := c.GetNumberArray("Vision/High Goal Pos", nil); len(got) != 3 {
		t.Errorf("mirror = %v, want the written array", got)
	}

	cancel()
	<-dialing
}

func TestBroadcastDropsSlowPeer(t *testing.T) {
	s := NewServer(nil, nil)

	// A peer with no writer whose queue is already full.
	stuck := newPeer("stuck", nil)
	for range peerSendBuffer {
		stuck.send <- nil
	}
	live := newPeer("live", nil)

	s.mu.Lock()
	s.peers[stuck.ID] = stuck
	s.peers[live.ID] = live
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.PutNumber("Vision/H_MIN", 30)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Put blocked on a slow peer")
	}

	select {
	case <-stuck.done:
	default:
		t.Error("slow peer should be closed")
	}
	if got := s.GetStats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	if got := len(live.send); got != 1 {
		t.Errorf("live peer queue = %d, want 1", got)
	}
	if got := s.GetNumber("Vision/H_MIN", Unset); got != 30 {
		t.Errorf("H_MIN = %v, want 30", got)
	}

	// Later writes skip the closed peer without counting it again.
	s.PutNumber("Vision/H_MAX", 90)
	if got := s.GetStats().Dropped; got != 1 {
		t.Errorf("Dropped after second put = %d, want 1", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
