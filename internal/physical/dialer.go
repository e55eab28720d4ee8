package physical

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
)

// ErrUnknownTransport indicates a transport we do not implement.
var ErrUnknownTransport = errors.New("physical: unknown transport")

// Endpoint describes how to reach the peer station.
type Endpoint struct {
	// Transport is one of "udp", "tcp" and "ws".
	Transport string

	// Listen is the local address. For "tcp" and "ws" a station with an
	// empty Peer waits for the peer to connect here.
	Listen string

	// Peer is the address of the peer station.
	Peer string
}

// Dialer establishes framing connections. The zero value of this structure is
// invalid; please, use the [NewDialer] constructor.
type Dialer struct {
	dialer *net.Dialer
	logger model.Logger
}

// NewDialer creates a new [Dialer] instance.
func NewDialer(logger model.Logger) *Dialer {
	return &Dialer{
		dialer: &net.Dialer{},
		logger: logger,
	}
}

// Connect establishes a connection with the peer described by ep and wraps
// it to implement the framing appropriate for the transport.
func (d *Dialer) Connect(ctx context.Context, ep Endpoint) (FramingConn, error) {
	conn, err := d.connect(ctx, ep)
	if err != nil {
		d.logger.Warnf("physical: connect failed: %s", err.Error())
		return nil, err
	}
	d.logger.Infof("physical: %s link %s <-> %s", ep.Transport, conn.LocalAddr(), conn.RemoteAddr())
	return conn, nil
}

func (d *Dialer) connect(ctx context.Context, ep Endpoint) (FramingConn, error) {
	switch ep.Transport {
	case "udp":
		// a connected socket bound to Listen only talks to Peer
		laddr, err := net.ResolveUDPAddr("udp", ep.Listen)
		if err != nil {
			return nil, err
		}
		raddr, err := net.ResolveUDPAddr("udp", ep.Peer)
		if err != nil {
			return nil, err
		}
		conn, err := net.DialUDP("udp", laddr, raddr)
		if err != nil {
			return nil, err
		}
		return &DatagramConn{newCloseOnceConn(conn)}, nil

	case "tcp":
		if ep.Peer != "" {
			conn, err := d.dialer.DialContext(ctx, "tcp", ep.Peer)
			if err != nil {
				return nil, err
			}
			return &StreamConn{newCloseOnceConn(conn)}, nil
		}
		conn, err := acceptOne(ctx, ep.Listen)
		if err != nil {
			return nil, err
		}
		return &StreamConn{newCloseOnceConn(conn)}, nil

	case "ws":
		if ep.Peer != "" {
			return DialWebSocket(ctx, ep.Peer)
		}
		return AcceptWebSocket(ctx, ep.Listen)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, ep.Transport)
	}
}

// acceptOne waits for a single TCP peer.
func acceptOne(ctx context.Context, address string) (net.Conn, error) {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	defer listener.Close()
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}
