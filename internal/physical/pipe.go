package physical

import (
	"io"
	"net"
	"sync"
)

// pipeAddr is the [net.Addr] of a pipe end.
type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }

// pipeEnd is one end of an in-memory channel that preserves frame boundaries.
type pipeEnd struct {
	name string
	peer string
	in   <-chan []byte
	out  chan<- []byte

	// done is shared by both ends: closing either end closes the pipe.
	done      chan struct{}
	closeOnce *sync.Once
}

var _ FramingConn = &pipeEnd{}

// Pipe returns two connected in-memory [FramingConn]. Each direction buffers
// up to capacity frames, after which writers block.
func Pipe(capacity int) (FramingConn, FramingConn) {
	ab := make(chan []byte, capacity)
	ba := make(chan []byte, capacity)
	done := make(chan struct{})
	once := &sync.Once{}
	a := &pipeEnd{name: "a", peer: "b", in: ba, out: ab, done: done, closeOnce: once}
	b := &pipeEnd{name: "b", peer: "a", in: ab, out: ba, done: done, closeOnce: once}
	return a, b
}

// ReadRawPacket implements FramingConn
func (p *pipeEnd) ReadRawPacket() ([]byte, error) {
	select {
	case pkt := <-p.in:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WriteRawPacket implements FramingConn
func (p *pipeEnd) WriteRawPacket(pkt []byte) error {
	select {
	case <-p.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.out <- append([]byte{}, pkt...):
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	}
}

// LocalAddr implements FramingConn
func (p *pipeEnd) LocalAddr() net.Addr {
	return pipeAddr(p.name)
}

// RemoteAddr implements FramingConn
func (p *pipeEnd) RemoteAddr() net.Addr {
	return pipeAddr(p.peer)
}

// Close implements FramingConn
func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	return nil
}
