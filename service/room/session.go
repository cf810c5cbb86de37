package room

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the transport handle a Session sends on. The transport layer owns
// the underlying connection; the registry only writes to it and closes it on
// withdrawal.
type Conn interface {
	WriteText(text string) error
	Close() error
	RemoteAddr() net.Addr
}

// Session binds one live connection to its routing identity. Immutable after
// construction: a reconnect produces a brand-new Session, never a mutation.
type Session struct {
	SessionID string // unique per live connection, transport-assigned
	RoomID    string // room membership, fixed for the session's lifetime
	ChannelID string // application stream id, annotation only, not routing
	Conn      Conn
}

func NewSession(sessionID, roomID, channelID string, conn Conn) *Session {
	return &Session{
		SessionID: sessionID,
		RoomID:    roomID,
		ChannelID: channelID,
		Conn:      conn,
	}
}

// ===== gorilla-backed Conn =====

const defaultWriteWait = 5 * time.Second

// wsConn serializes writes: gorilla allows a single concurrent writer, and
// the mutex also gives each session FIFO delivery order. Every write carries
// a deadline so one stalled peer cannot hold up a broadcast loop for long.
type wsConn struct {
	mu        sync.Mutex
	ws        *websocket.Conn
	writeWait time.Duration
}

func NewWSConn(ws *websocket.Conn, writeWait time.Duration) Conn {
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	return &wsConn{ws: ws, writeWait: writeWait}
}

func (c *wsConn) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}
