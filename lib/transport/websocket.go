package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSTransport adapts a gorilla WebSocket connection to Transport. Writes are
// serialized with a mutex because gorilla allows only one concurrent writer.
type WSTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewWSTransport wraps an upgraded or dialed WebSocket connection.
func NewWSTransport(conn *websocket.Conn, maxFrameBytes int64) *WSTransport {
	if maxFrameBytes > 0 {
		conn.SetReadLimit(maxFrameBytes)
	}
	return &WSTransport{conn: conn}
}

// ReadMessage returns the next text or binary frame payload.
func (t *WSTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

// WriteMessage sends one text frame.
func (t *WSTransport) WriteMessage(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// SetReadDeadline bounds the next ReadMessage.
func (t *WSTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

// Close tears down the underlying connection.
func (t *WSTransport) Close() error {
	return t.conn.Close()
}

// Dial connects to a relay WebSocket endpoint.
func Dial(url string, maxFrameBytes int64) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return NewWSTransport(conn, maxFrameBytes), nil
}
