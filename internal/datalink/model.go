package datalink

import (
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// frameTransmitter sends frames carrying the current piggyback ack.
type frameTransmitter interface {
	// sendData (re)transmits the DATA frame for seq and restarts its timer.
	sendData(seq seqspace.Seq, cause model.SendCause)

	// sendControl transmits an ACK or NAK frame.
	sendControl(kind model.FrameKind)
}

// outgoingFrameHandler deals with the outgoing side of the link.
type outgoingFrameHandler interface {
	// submit stores a new packet and sends it in a DATA frame.
	submit(p model.Packet)

	// onACKProgress consumes a cumulative ack and returns how many frames it acknowledged.
	onACKProgress(ack seqspace.Seq) int

	// onTimeout resends the frame whose timer expired.
	onTimeout(seq seqspace.Seq)

	// onNAK resends the frame the peer is waiting for, if outstanding.
	onNAK(ack seqspace.Seq) bool
}

// incomingFrameHandler deals with the incoming side of the link.
type incomingFrameHandler interface {
	// onFrameData buffers a DATA frame and delivers whatever became in-order.
	onFrameData(f *model.Frame)
}
