package datalink

import (
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

//
// incomingFrameHandler implementation.
//

// receiverWindow is the part of the link that sees incoming DATA frames.
// Please use the constructor `newReceiverWindow()`
type receiverWindow struct {
	// space is the sequence number space.
	space seqspace.Space

	// frameExpected is the lower edge of the window.
	frameExpected seqspace.Seq

	// tooFar is the upper edge of the window, exclusive.
	tooFar seqspace.Seq

	// arrived marks the slots of in that hold a buffered frame.
	arrived []bool

	// in holds out-of-order packets, indexed by seq mod NrBufs.
	in []model.Packet

	// consumer receives the in-order packets.
	consumer model.Consumer

	// ctrl owns noNAK and the delayed-ack timer.
	ctrl *retransmitController

	// tx sends NAKs.
	tx frameTransmitter

	// tracer observes deliveries.
	tracer model.Tracer

	// logger is the logger to use
	logger model.Logger
}

func newReceiverWindow(
	logger model.Logger,
	tracer model.Tracer,
	space seqspace.Space,
	consumer model.Consumer,
	ctrl *retransmitController,
	tx frameTransmitter,
) *receiverWindow {
	return &receiverWindow{
		space:         space,
		frameExpected: 0,
		tooFar:        seqspace.Seq(space.NrBufs()),
		arrived:       make([]bool, space.NrBufs()),
		in:            make([]model.Packet, space.NrBufs()),
		consumer:      consumer,
		ctrl:          ctrl,
		tx:            tx,
		tracer:        tracer,
		logger:        logger,
	}
}

func (r *receiverWindow) onFrameData(f *model.Frame) {
	if f.Seq != r.frameExpected && r.ctrl.shouldNAK() {
		r.logger.Debugf("datalink: got seq=%d, expected %d: sending NAK", f.Seq, r.frameExpected)
		r.tx.sendControl(model.FrameNAK)
	} else {
		r.ctrl.armACKTimer()
	}

	slot := r.space.Slot(f.Seq)
	if !r.space.Between(r.frameExpected, f.Seq, r.tooFar) || r.arrived[slot] {
		r.logger.Debugf("datalink: seq=%d outside [%d, %d) or duplicate: not buffered", f.Seq, r.frameExpected, r.tooFar)
		return
	}
	r.arrived[slot] = true
	r.in[slot] = f.Payload

	for r.arrived[r.space.Slot(r.frameExpected)] {
		slot := r.space.Slot(r.frameExpected)
		r.consumer.Deliver(r.in[slot])
		r.tracer.OnDelivered(r.frameExpected, len(r.in[slot]))
		r.ctrl.onInOrderDelivery()
		r.arrived[slot] = false
		r.in[slot] = nil
		r.frameExpected = r.space.Inc(r.frameExpected)
		r.tooFar = r.space.Inc(r.tooFar)
		r.ctrl.armACKTimer()
	}
}

var _ incomingFrameHandler = &receiverWindow{}
