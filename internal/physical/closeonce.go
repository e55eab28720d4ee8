package physical

import (
	"net"
	"sync"
)

// closeOnceConn is a [net.Conn] that tolerates being closed by both the
// move-up worker and the shutdown watcher. Every Close after the first
// returns the error of the first.
//
// The zero value is invalid; use [newCloseOnceConn].
type closeOnceConn struct {
	net.Conn
	once     sync.Once
	closeErr error
}

var _ net.Conn = &closeOnceConn{}

func newCloseOnceConn(conn net.Conn) *closeOnceConn {
	return &closeOnceConn{Conn: conn}
}

// Close implements net.Conn.
func (c *closeOnceConn) Close() error {
	c.once.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}
