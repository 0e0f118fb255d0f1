package transport

import (
	"time"

	"github.com/samber/oops"
)

// ErrPipeClosed is returned once either end of a pipe has closed.
var ErrPipeClosed = oops.Errorf("pipe transport closed")

// PipeTransport is an in-process Transport for tests: two ends connected by
// buffered frame queues.
type PipeTransport struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	other  *PipeTransport
}

// Pipe returns two connected transports. Frames written to one end are read
// from the other in order.
func Pipe() (*PipeTransport, *PipeTransport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a := &PipeTransport{in: ba, out: ab, closed: make(chan struct{})}
	b := &PipeTransport{in: ab, out: ba, closed: make(chan struct{})}
	a.other = b
	b.other = a
	return a, b
}

// ReadMessage blocks for the next frame from the peer end.
func (t *PipeTransport) ReadMessage() ([]byte, error) {
	select {
	case data := <-t.in:
		return data, nil
	case <-t.closed:
		return nil, ErrPipeClosed
	case <-t.other.closed:
		// Drain frames the peer wrote before closing.
		select {
		case data := <-t.in:
			return data, nil
		default:
			return nil, ErrPipeClosed
		}
	}
}

// WriteMessage sends one frame to the peer end.
func (t *PipeTransport) WriteMessage(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	// Check for a closed end first: select picks among ready cases at random,
	// and the buffered queue usually still has room.
	select {
	case <-t.closed:
		return ErrPipeClosed
	case <-t.other.closed:
		return ErrPipeClosed
	default:
	}
	select {
	case <-t.closed:
		return ErrPipeClosed
	case <-t.other.closed:
		return ErrPipeClosed
	case t.out <- buf:
		return nil
	}
}

// SetReadDeadline is a no-op for pipes.
func (t *PipeTransport) SetReadDeadline(time.Time) error {
	return nil
}

// Close shuts down this end; pending reads on both ends fail.
func (t *PipeTransport) Close() error {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
	return nil
}
