package physical

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketPath is the HTTP path where a listening station accepts its peer.
const WebSocketPath = "/link"

// ErrNotBinary is returned when the peer sends a non-binary message.
var ErrNotBinary = errors.New("physical: websocket message is not binary")

// WSConn carries one frame per binary websocket message.
type WSConn struct {
	conn *websocket.Conn

	// writeMu serializes writers, as required by gorilla/websocket.
	writeMu sync.Mutex

	closeOnce sync.Once
}

var _ FramingConn = &WSConn{}

// NewWSConn wraps an established websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// ReadRawPacket implements FramingConn
func (c *WSConn) ReadRawPacket() ([]byte, error) {
	kind, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != websocket.BinaryMessage {
		return nil, fmt.Errorf("%w: type %d", ErrNotBinary, kind)
	}
	return data, nil
}

// WriteRawPacket implements FramingConn
func (c *WSConn) WriteRawPacket(pkt []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, pkt)
}

// LocalAddr implements FramingConn
func (c *WSConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr implements FramingConn
func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close sends a close message, best effort, and closes the connection.
func (c *WSConn) Close() (err error) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return
}

// DialWebSocket connects to a station listening with [AcceptWebSocket].
func DialWebSocket(ctx context.Context, address string) (*WSConn, error) {
	url := fmt.Sprintf("ws://%s%s", address, WebSocketPath)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWSConn(conn), nil
}

// WebSocketHandler returns an [http.Handler] that upgrades each request and
// passes the resulting conn to accept.
func WebSocketHandler(accept func(*WSConn)) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accept(NewWSConn(conn))
	})
}

// AcceptWebSocket serves HTTP on address until the first peer connects, and
// returns its conn.
func AcceptWebSocket(ctx context.Context, address string) (*WSConn, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	accepted := make(chan *WSConn, 1)
	mux := http.NewServeMux()
	mux.Handle(WebSocketPath, WebSocketHandler(func(conn *WSConn) {
		select {
		case accepted <- conn:
		default:
			// we already have a peer
			conn.Close()
		}
	}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(listener)

	select {
	case conn := <-accepted:
		// hijacked connections survive the server shutdown
		srv.Close()
		return conn, nil
	case <-ctx.Done():
		srv.Close()
		return nil, ctx.Err()
	}
}
