// Package transport abstracts the ordered, reliable, message-oriented channel
// the protocol runs over. Production uses WebSocket frames; tests use an
// in-process pipe.
package transport

import (
	"time"
)

// Transport is one full-duplex message channel. ReadMessage blocks for the
// next frame; WriteMessage sends one frame. Implementations must allow one
// concurrent reader and one concurrent writer.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}
