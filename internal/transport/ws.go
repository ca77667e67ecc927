package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Upgrader is shared across every /v1/tts/stream/{session_id} request.
// CheckOrigin is permissive: this gateway has no authentication layer
// (spec.md §1 Non-goals) and expects an operator to front it with a
// reverse proxy if origin restriction is required.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Transport is the narrow interface the pipeline depends on: the
// server is the only sender, so the surface is Send + Close + Alive.
type Transport interface {
	// Send writes one frame. Safe to call from a single goroutine at a
	// time; the pipeline never calls Send concurrently with itself.
	Send(f Frame) error
	// Close closes the underlying connection with the given close code.
	Close(code int, reason string) error
	// Alive reports whether the client appears to still be connected,
	// used for the liveness check a worker makes after dequeueing and
	// before calling the provider (spec.md §5), and between chunks.
	Alive() bool
}

// WSTransport adapts a gorilla/websocket connection to Transport. A
// background goroutine answers pings/pongs so a silent client doesn't
// look dead while a worker is still between chunks.
type WSTransport struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	alive  bool

	stopPing chan struct{}
	pingOnce sync.Once
}

// NewWSTransport wraps an already-upgraded connection and starts its
// keepalive loop.
func NewWSTransport(conn *websocket.Conn) *WSTransport {
	t := &WSTransport{conn: conn, alive: true, stopPing: make(chan struct{})}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go t.readLoop()
	go t.pingLoop()
	return t
}

// readLoop drains client messages (the server never expects any beyond
// control frames) and marks the transport dead when the connection
// errors or closes, so Alive() reflects client disconnects promptly.
func (t *WSTransport) readLoop() {
	for {
		if _, _, err := t.conn.ReadMessage(); err != nil {
			t.markDead()
			return
		}
	}
}

func (t *WSTransport) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopPing:
			return
		case <-ticker.C:
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.markDead()
				return
			}
		}
	}
}

func (t *WSTransport) markDead() {
	t.mu.Lock()
	t.alive = false
	t.mu.Unlock()
}

func (t *WSTransport) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive && !t.closed
}

func (t *WSTransport) Send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("transport: marshal frame: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport: send on closed connection")
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) Close(code int, reason string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.pingOnce.Do(func() { close(t.stopPing) })

	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return t.conn.Close()
}
