package physical

import (
	"math"
	"net"
)

// maxDatagramSize is the largest UDP payload.
const maxDatagramSize = math.MaxUint16

// DatagramConn carries one encoded link frame per UDP datagram. Frame
// boundaries come from the datagrams, so no length prefix is written.
type DatagramConn struct {
	net.Conn
}

var _ FramingConn = &DatagramConn{}

// ReadRawPacket implements FramingConn. Empty datagrams carry no frame and
// are skipped; anything else goes to the link, which checks the CRC.
func (c *DatagramConn) ReadRawPacket() ([]byte, error) {
	buffer := make([]byte, maxDatagramSize)
	for {
		count, err := c.Read(buffer)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return buffer[:count], nil
		}
	}
}

// WriteRawPacket implements FramingConn.
func (c *DatagramConn) WriteRawPacket(frame []byte) error {
	if len(frame) > maxDatagramSize {
		return ErrPacketTooLarge
	}
	_, err := c.Conn.Write(frame)
	return err
}
