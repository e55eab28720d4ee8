package physical

import (
	"encoding/binary"
	"io"
	"math"
	"net"
)

// StreamConn wraps a stream socket and prefixes each frame with its
// length as a big endian uint16.
type StreamConn struct {
	net.Conn
}

var _ FramingConn = &StreamConn{}

// ReadRawPacket implements FramingConn
func (c *StreamConn) ReadRawPacket() ([]byte, error) {
	lenbuf := make([]byte, 2)
	if _, err := io.ReadFull(c.Conn, lenbuf); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(lenbuf)
	buf := make([]byte, length)
	if _, err := io.ReadFull(c.Conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteRawPacket implements FramingConn
func (c *StreamConn) WriteRawPacket(pkt []byte) error {
	if len(pkt) > math.MaxUint16 {
		return ErrPacketTooLarge
	}
	buf := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(pkt)), uint16(len(pkt)))
	buf = append(buf, pkt...)
	_, err := c.Conn.Write(buf)
	return err
}
