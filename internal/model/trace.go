package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/optional"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// Tracer observes what happens inside a link. A Tracer can be optionally passed
// to the link constructor, and it will be invoked from the link event loop.
type Tracer interface {
	// TimeNow allows to inject time for deterministic tests.
	TimeNow() time.Time

	// OnFrameOut is called when a frame is handed to the physical layer.
	OnFrameOut(frame *Frame, cause SendCause)

	// OnFrameIn is called when a valid frame is received.
	OnFrameIn(frame *Frame)

	// OnCorruptFrame is called when a received frame fails validation.
	OnCorruptFrame(size int)

	// OnDelivered is called when a packet is passed to the consumer.
	OnDelivered(seq seqspace.Seq, size int)

	// OnWindow is called after every event with the sender window occupancy
	// and the state of the admission gate.
	OnWindow(outstanding int, intake bool)
}

// SendCause explains why a frame was sent.
type SendCause int

const (
	// SendFirst is the first transmission of a DATA frame.
	SendFirst = SendCause(iota)

	// SendTimeout is a retransmission after a timer expired.
	SendTimeout

	// SendNAK is a fast retransmission after a NAK.
	SendNAK

	// SendControl is an ACK or NAK frame.
	SendControl
)

var _ fmt.Stringer = SendCause(0)

// String implements fmt.Stringer
func (c SendCause) String() string {
	switch c {
	case SendFirst:
		return "first"
	case SendTimeout:
		return "timeout"
	case SendNAK:
		return "nak"
	case SendControl:
		return "control"
	default:
		return "unknown"
	}
}

const (
	TraceEventFrameIn = TraceEventType(iota)
	TraceEventFrameOut
	TraceEventCorrupt
	TraceEventDelivered
)

// TraceEventType indicates which event we logged.
type TraceEventType int

var _ fmt.Stringer = TraceEventType(0)

// String implements fmt.Stringer
func (e TraceEventType) String() string {
	switch e {
	case TraceEventFrameIn:
		return "frame_in"
	case TraceEventFrameOut:
		return "frame_out"
	case TraceEventCorrupt:
		return "corrupt"
	case TraceEventDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// TraceEvent is a single traced event.
type TraceEvent interface {
	Type() TraceEventType
	Time() time.Time
	Frame() optional.Value[LoggedFrame]
	json.Marshaler
}

// LoggedFrame tracks metadata about a frame useful to build traces.
type LoggedFrame struct {
	Direction Direction

	Kind FrameKind
	Seq  seqspace.Seq
	ACK  seqspace.Seq

	// PayloadSize is the size of the payload in bytes.
	PayloadSize int

	// Cause is only meaningful for outgoing frames.
	Cause SendCause
}

// MarshalJSON implements json.Marshaler.
func (lf LoggedFrame) MarshalJSON() ([]byte, error) {
	j := struct {
		Kind        string       `json:"kind"`
		Seq         seqspace.Seq `json:"seq"`
		ACK         seqspace.Seq `json:"ack"`
		Direction   string       `json:"direction"`
		PayloadSize int          `json:"payload_size"`
		Cause       string       `json:"cause,omitempty"`
	}{
		Kind:        lf.Kind.String(),
		Seq:         lf.Seq,
		ACK:         lf.ACK,
		Direction:   lf.Direction.String(),
		PayloadSize: lf.PayloadSize,
	}
	if lf.Direction == DirectionOutgoing {
		j.Cause = lf.Cause.String()
	}
	return json.Marshal(j)
}

// DummyTracer is a no-op implementation of [model.Tracer] that does nothing
// but can be safely passed as a default implementation.
type DummyTracer struct{}

// TimeNow allows to manipulate time for deterministic tests.
func (dt *DummyTracer) TimeNow() time.Time { return time.Now() }

// OnFrameOut implements Tracer.
func (dt *DummyTracer) OnFrameOut(frame *Frame, cause SendCause) {}

// OnFrameIn implements Tracer.
func (dt *DummyTracer) OnFrameIn(frame *Frame) {}

// OnCorruptFrame implements Tracer.
func (dt *DummyTracer) OnCorruptFrame(size int) {}

// OnDelivered implements Tracer.
func (dt *DummyTracer) OnDelivered(seq seqspace.Seq, size int) {}

// OnWindow implements Tracer.
func (dt *DummyTracer) OnWindow(outstanding int, intake bool) {}

// Assert that DummyTracer implements [model.Tracer].
var _ Tracer = &DummyTracer{}
