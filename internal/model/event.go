package model

import "github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"

// Event is something the link event loop reacts to. The set of
// implementations is closed: see the types below.
type Event interface {
	isEvent()
}

// NewPacketReady tells the link that the producer has a packet.
type NewPacketReady struct{}

// ChannelReady tells the link that the physical layer can accept frames.
type ChannelReady struct{}

// FrameArrived carries raw bytes received from the channel, possibly corrupt.
type FrameArrived struct {
	Raw []byte
}

// DataTimeout is the expiration of the retransmission timer for Seq.
type DataTimeout struct {
	Seq        seqspace.Seq
	Generation uint64
}

// ACKTimeout is the expiration of the delayed-ack timer.
type ACKTimeout struct {
	Generation uint64
}

func (NewPacketReady) isEvent() {}
func (ChannelReady) isEvent()   {}
func (FrameArrived) isEvent()   {}
func (DataTimeout) isEvent()    {}
func (ACKTimeout) isEvent()     {}

var (
	_ Event = NewPacketReady{}
	_ Event = ChannelReady{}
	_ Event = FrameArrived{}
	_ Event = DataTimeout{}
	_ Event = ACKTimeout{}
)
