package datalink

import (
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// retransmitController owns the noNAK flag and maps timers to sequence
// numbers. Data timers are keyed by sequence number, so an expiration tells
// us exactly which frame to resend.
type retransmitController struct {
	// noNAK is true when no NAK is outstanding.
	noNAK bool

	// timers is the timer facility.
	timers model.TimerFacility

	dataTimeout time.Duration
	ackTimeout  time.Duration
}

func newRetransmitController(timers model.TimerFacility, dataTimeout, ackTimeout time.Duration) *retransmitController {
	return &retransmitController{
		noNAK:       true,
		timers:      timers,
		dataTimeout: dataTimeout,
		ackTimeout:  ackTimeout,
	}
}

// shouldNAK returns whether we are allowed to send a NAK.
func (c *retransmitController) shouldNAK() bool {
	return c.noNAK
}

// onNAKSent suppresses further NAKs.
func (c *retransmitController) onNAKSent() {
	c.noNAK = false
}

// onInOrderDelivery allows NAKs again.
func (c *retransmitController) onInOrderDelivery() {
	c.noNAK = true
}

func (c *retransmitController) startDataTimer(seq seqspace.Seq) {
	c.timers.Start(model.DataTimerID(seq), c.dataTimeout)
}

func (c *retransmitController) stopDataTimer(seq seqspace.Seq) {
	c.timers.Stop(model.DataTimerID(seq))
}

// armACKTimer starts the delayed-ack timer unless it is already pending, so
// that a steady stream of DATA frames cannot postpone the ack forever.
func (c *retransmitController) armACKTimer() {
	if !c.timers.Pending(model.ACKTimerID) {
		c.timers.Start(model.ACKTimerID, c.ackTimeout)
	}
}

func (c *retransmitController) stopACKTimer() {
	c.timers.Stop(model.ACKTimerID)
}

// dataTimerExpired returns whether ev is the expiration of the armed timer
// for ev.Seq, and not a leftover of a timer stopped or restarted meanwhile.
func (c *retransmitController) dataTimerExpired(ev model.DataTimeout) bool {
	return c.timers.Current(model.DataTimerID(ev.Seq), ev.Generation)
}

// ackTimerExpired is like dataTimerExpired for the delayed-ack timer.
func (c *retransmitController) ackTimerExpired(ev model.ACKTimeout) bool {
	return c.timers.Current(model.ACKTimerID, ev.Generation)
}
