package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 30 * time.Second

// Conn is one live peer socket. Gorilla connections support a single
// concurrent writer, so every outbound path (JSON envelopes, stream frames,
// close control messages) goes through the write mutex.
type Conn struct {
	SessionID string
	UserID    string

	ws      *websocket.Conn
	writeMu sync.Mutex
	state   ConnState
}

func NewConn(wsConn *websocket.Conn, sessionID, userID string) *Conn {
	return &Conn{
		SessionID: sessionID,
		UserID:    userID,
		ws:        wsConn,
		state:     StateConnecting,
	}
}

// SendJSON writes one envelope as a text message.
func (c *Conn) SendJSON(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(env)
}

// WriteFrame writes one stream frame as a binary message.
func (c *Conn) WriteFrame(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, EncodeFrame(f))
}

// CloseWith sends a close control frame with the given code and closes the
// socket.
func (c *Conn) CloseWith(code int, reason string) {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.ws.Close()
}
