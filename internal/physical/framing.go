// Package physical moves serialized frames between a link and the channel.
package physical

import (
	"errors"
	"net"
)

// FramingConn is a network connection that knows about the framing used
// to read and write whole frames.
type FramingConn interface {
	// ReadRawPacket reads and returns a raw frame.
	ReadRawPacket() ([]byte, error)

	// WriteRawPacket writes a raw frame.
	WriteRawPacket(pkt []byte) error

	// LocalAddr is like net.Conn.LocalAddr.
	LocalAddr() net.Addr

	// RemoteAddr is like net.Conn.RemoteAddr.
	RemoteAddr() net.Addr

	// Close is like net.Conn.Close.
	Close() error
}

// ErrPacketTooLarge means that a frame is larger than the framing allows.
var ErrPacketTooLarge = errors.New("physical: packet too large")
