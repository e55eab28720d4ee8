package model

import (
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/optional"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// Producer is the network layer handing packets down to the link.
type Producer interface {
	// TryTakePacket returns the next packet, if any. It MUST NOT block.
	TryTakePacket() optional.Value[Packet]

	// SetIntake enables or disables the production of [NewPacketReady] events.
	SetIntake(enabled bool)
}

// Consumer is the network layer receiving in-order packets from the link.
type Consumer interface {
	// Deliver passes a packet up. It MUST NOT block.
	Deliver(p Packet)
}

// PhysicalLayer transmits serialized frames over the channel.
type PhysicalLayer interface {
	// Transmit queues a frame for transmission. It MUST NOT block. The return
	// value reports whether the channel can accept more frames right away.
	Transmit(frame []byte) bool

	// Ready reports whether the channel can accept more frames right now.
	// The link asks again on [ChannelReady] since that event may be stale.
	Ready() bool
}

// TimerID identifies a timer owned by the link.
type TimerID int

// ACKTimerID is the identifier of the single delayed-ack timer.
const ACKTimerID = TimerID(-1)

// DataTimerID returns the identifier of the retransmission timer for seq.
func DataTimerID(seq seqspace.Seq) TimerID {
	return TimerID(seq)
}

// TimerFacility starts and stops the link timers. Expirations come back to
// the link as [DataTimeout] or [ACKTimeout] events.
type TimerFacility interface {
	// Start arms the timer, cancelling any previous timer with the same id.
	Start(id TimerID, d time.Duration)

	// Stop cancels the timer, if pending.
	Stop(id TimerID)

	// Pending returns whether the timer is armed.
	Pending(id TimerID) bool

	// Current returns whether an expiration with the given generation belongs
	// to the currently armed timer. A true return disarms the timer.
	Current(id TimerID, generation uint64) bool
}
