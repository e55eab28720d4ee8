package datalink

import (
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/runtimex"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

//
// outgoingFrameHandler implementation.
//

// senderWindow keeps state about the outgoing frames, and implements
// outgoingFrameHandler. Please use the constructor `newSenderWindow()`
type senderWindow struct {
	// space is the sequence number space.
	space seqspace.Space

	// ackExpected is the lower edge of the window.
	ackExpected seqspace.Seq

	// nextFrameToSend is the upper edge of the window, exclusive.
	nextFrameToSend seqspace.Seq

	// nbuffered is how many frames are outstanding.
	nbuffered int

	// out holds the outstanding packets, indexed by seq mod NrBufs.
	out []model.Packet

	// ctrl owns the retransmission timers.
	ctrl *retransmitController

	// tx sends frames.
	tx frameTransmitter

	// logger is the logger to use
	logger model.Logger
}

// newSenderWindow returns a new instance of senderWindow.
func newSenderWindow(logger model.Logger, space seqspace.Space, ctrl *retransmitController, tx frameTransmitter) *senderWindow {
	return &senderWindow{
		space:           space,
		ackExpected:     0,
		nextFrameToSend: 0,
		nbuffered:       0,
		out:             make([]model.Packet, space.NrBufs()),
		ctrl:            ctrl,
		tx:              tx,
		logger:          logger,
	}
}

// full returns whether the window cannot admit another packet.
func (s *senderWindow) full() bool {
	return s.nbuffered >= s.space.NrBufs()
}

// payload returns the packet stored for seq.
func (s *senderWindow) payload(seq seqspace.Seq) model.Packet {
	return s.out[s.space.Slot(seq)]
}

// outstanding returns whether seq has been sent but not acknowledged yet.
func (s *senderWindow) outstanding(seq seqspace.Seq) bool {
	return s.space.Between(s.ackExpected, seq, s.nextFrameToSend)
}

func (s *senderWindow) submit(p model.Packet) {
	runtimex.Assert(!s.full(), "datalink: submit with a full sender window")
	s.out[s.space.Slot(s.nextFrameToSend)] = p
	s.tx.sendData(s.nextFrameToSend, model.SendFirst)
	s.nextFrameToSend = s.space.Inc(s.nextFrameToSend)
	s.nbuffered++
}

func (s *senderWindow) onACKProgress(ack seqspace.Seq) int {
	acked := 0
	for s.outstanding(ack) {
		s.nbuffered--
		s.ctrl.stopDataTimer(s.ackExpected)
		s.out[s.space.Slot(s.ackExpected)] = nil
		s.ackExpected = s.space.Inc(s.ackExpected)
		acked++
	}
	runtimex.Assert(s.nbuffered >= 0, "datalink: negative nbuffered")
	if acked > 0 {
		s.logger.Debugf("datalink: %d frame(s) acked, window [%d, %d)", acked, s.ackExpected, s.nextFrameToSend)
	}
	return acked
}

func (s *senderWindow) onTimeout(seq seqspace.Seq) {
	if !s.outstanding(seq) {
		s.logger.Debugf("datalink: timeout for seq=%d which is not outstanding", seq)
		return
	}
	s.logger.Debugf("datalink: timeout for seq=%d, resending", seq)
	s.tx.sendData(seq, model.SendTimeout)
}

func (s *senderWindow) onNAK(ack seqspace.Seq) bool {
	wanted := s.space.Inc(ack)
	if !s.outstanding(wanted) {
		return false
	}
	s.logger.Debugf("datalink: NAK for seq=%d, resending", wanted)
	s.tx.sendData(wanted, model.SendNAK)
	return true
}

var _ outgoingFrameHandler = &senderWindow{}
