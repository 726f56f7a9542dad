package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 4096
)

type connState int

const (
	stateConnecting connState = iota
	stateAuthenticated
	stateClosed
)

var errConnClosed = errors.New("connection closed")

// socket is the slice of *websocket.Conn the server uses; tests substitute an
// in-memory implementation.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type clientConn struct {
	userID string // immutable once authenticated
	sock   socket

	mu    sync.Mutex
	state connState
	alive bool
}

func newClientConn(sock socket) *clientConn {
	return &clientConn{sock: sock, state: stateConnecting, alive: true}
}

func (c *clientConn) authenticate(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.state = stateAuthenticated
	c.mu.Unlock()
}

func (c *clientConn) write(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return errConnClosed
	}
	_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
	return c.sock.WriteJSON(env)
}

func (c *clientConn) ping() error {
	return c.sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *clientConn) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

// sweepAlive reports whether the previous ping round was answered and arms
// the next one.
func (c *clientConn) sweepAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.alive
	c.alive = false
	return was
}

// closeWith sends a close frame and tears the socket down. CLOSED is
// terminal; repeat calls are no-ops.
func (c *clientConn) closeWith(code int, reason string) {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.sock.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.sock.Close()
}
