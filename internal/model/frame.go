package model

//
// Frame
//
// The unit exchanged with the physical layer.
//

import (
	"fmt"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// Packet is the opaque payload exchanged with the network layer.
type Packet []byte

// FrameKind is the kind of a frame.
type FrameKind byte

// Frame kinds, as they appear in the first byte of a frame.
const (
	FrameData = FrameKind(iota + 1) // 1
	FrameACK                        // 2
	FrameNAK                        // 3
)

var _ fmt.Stringer = FrameKind(0)

// String implements fmt.Stringer.
func (k FrameKind) String() string {
	switch k {
	case FrameData:
		return "DATA"
	case FrameACK:
		return "ACK"
	case FrameNAK:
		return "NAK"
	default:
		return "UNKNOWN"
	}
}

// Valid returns whether k is one of the known frame kinds.
func (k FrameKind) Valid() bool {
	return k == FrameData || k == FrameACK || k == FrameNAK
}

// NewFrameKindFromString parses the string representation of a frame kind.
// The zero return value is invalid and always coupled with a non-nil error.
func NewFrameKindFromString(s string) (FrameKind, error) {
	switch s {
	case "DATA":
		return FrameData, nil
	case "ACK":
		return FrameACK, nil
	case "NAK":
		return FrameNAK, nil
	default:
		return 0, fmt.Errorf("unknown frame kind: %q", s)
	}
}

// Frame is a decoded data link frame.
type Frame struct {
	// Kind is the frame kind.
	Kind FrameKind

	// Seq is the sequence number. Only meaningful for DATA frames.
	Seq seqspace.Seq

	// ACK is one behind the next frame the sender of this frame expects.
	ACK seqspace.Seq

	// Payload is only present in DATA frames.
	Payload Packet
}

// Log writes an entry in the passed logger with a representation of this frame.
func (f *Frame) Log(logger Logger, direction Direction) {
	var dir string
	switch direction {
	case DirectionIncoming:
		dir = "<"
	case DirectionOutgoing:
		dir = ">"
	default:
		logger.Warnf("wrong direction: %d", direction)
		return
	}

	switch f.Kind {
	case FrameData:
		logger.Debugf("%s %s seq=%d ack=%d [%d bytes]", dir, f.Kind, f.Seq, f.ACK, len(f.Payload))
	default:
		logger.Debugf("%s %s ack=%d", dir, f.Kind, f.ACK)
	}
}

// Direction is one of two directions on a frame.
type Direction int

const (
	// DirectionIncoming marks received frames.
	DirectionIncoming = Direction(iota)

	// DirectionOutgoing marks frames to be sent.
	DirectionOutgoing
)

var _ fmt.Stringer = Direction(0)

// String implements fmt.Stringer
func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "recv"
	case DirectionOutgoing:
		return "send"
	default:
		return "undefined"
	}
}
