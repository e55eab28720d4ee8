package datalink

import (
	"context"
	"errors"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/framecodec"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/runtimex"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

// ErrEventsClosed is returned by [Link.Run] when the events channel is closed.
var ErrEventsClosed = errors.New("datalink: events channel closed")

// Collaborators groups the components a [Link] talks to.
type Collaborators struct {
	// Physical transmits frames.
	Physical model.PhysicalLayer

	// Producer provides packets to send.
	Producer model.Producer

	// Consumer receives in-order packets.
	Consumer model.Consumer

	// Timers runs the retransmission and delayed-ack timers.
	Timers model.TimerFacility
}

// Link is one station of the selective repeat protocol. It owns the sender
// window, the receiver window and the retransmission state, and mutates them
// only from [Link.HandleEvent]. Please use the constructor `NewLink()`
type Link struct {
	space    seqspace.Space
	codec    *framecodec.Codec
	ctrl     *retransmitController
	sender   *senderWindow
	receiver *receiverWindow

	events   <-chan model.Event
	phy      model.PhysicalLayer
	producer model.Producer

	// channelReady is the channel-send-capable flag.
	channelReady bool

	// intake is the last value passed to SetIntake.
	intake bool

	logger model.Logger
	tracer model.Tracer
}

// NewLink creates a new [Link] reading events from the given channel.
func NewLink(cfg *config.Config, events <-chan model.Event, c Collaborators) *Link {
	runtimex.Assert(c.Physical != nil, "datalink: nil physical layer")
	runtimex.Assert(c.Producer != nil, "datalink: nil producer")
	runtimex.Assert(c.Consumer != nil, "datalink: nil consumer")
	runtimex.Assert(c.Timers != nil, "datalink: nil timers")

	space := cfg.Space()
	lnk := &Link{
		space:        space,
		codec:        framecodec.New(space, cfg.MaxPacketSize()),
		ctrl:         newRetransmitController(c.Timers, cfg.DataTimeout(), cfg.ACKTimeout()),
		events:       events,
		phy:          c.Physical,
		producer:     c.Producer,
		channelReady: false,
		intake:       false,
		logger:       cfg.Logger(),
		tracer:       cfg.Tracer(),
	}
	lnk.sender = newSenderWindow(lnk.logger, space, lnk.ctrl, lnk)
	lnk.receiver = newReceiverWindow(lnk.logger, lnk.tracer, space, c.Consumer, lnk.ctrl, lnk)
	return lnk
}

// Run dispatches events until the context is done or the events channel is
// closed. In the former case it returns the context error, otherwise
// [ErrEventsClosed].
func (lnk *Link) Run(ctx context.Context) error {
	lnk.logger.Debugf("datalink: started with MaxSeq=%d NrBufs=%d", lnk.space.MaxSeq(), lnk.space.NrBufs())
	defer lnk.logger.Debug("datalink: done")

	lnk.updateIntake()
	for {
		// POSSIBLY BLOCK waiting for the next event
		select {
		case ev, ok := <-lnk.events:
			if !ok {
				return ErrEventsClosed
			}
			lnk.HandleEvent(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleEvent runs the handler for a single event to completion and then
// evaluates the admission gate. It MUST NOT be called concurrently with
// itself or with [Link.Run].
func (lnk *Link) HandleEvent(ev model.Event) {
	switch ev := ev.(type) {
	case model.NewPacketReady:
		lnk.onNewPacketReady()

	case model.ChannelReady:
		// a Transmit may have filled the channel again since the event was posted
		lnk.channelReady = lnk.phy.Ready()

	case model.FrameArrived:
		lnk.onFrameArrived(ev.Raw)

	case model.DataTimeout:
		if lnk.ctrl.dataTimerExpired(ev) {
			lnk.sender.onTimeout(ev.Seq)
		} else {
			lnk.logger.Debugf("datalink: stale timeout for seq=%d", ev.Seq)
		}

	case model.ACKTimeout:
		if lnk.ctrl.ackTimerExpired(ev) {
			lnk.sendControl(model.FrameACK)
		} else {
			lnk.logger.Debug("datalink: stale ack timeout")
		}

	default:
		lnk.logger.Warnf("datalink: unhandled event %T", ev)
	}
	lnk.updateIntake()
}

func (lnk *Link) onNewPacketReady() {
	if !lnk.intake {
		// the gate was closed after the producer posted the event
		lnk.logger.Debug("datalink: intake disabled, ignoring new packet")
		return
	}
	p := lnk.producer.TryTakePacket()
	if p.IsNone() {
		return
	}
	lnk.sender.submit(p.Unwrap())
}

func (lnk *Link) onFrameArrived(raw []byte) {
	frame, err := lnk.codec.Decode(raw)
	if err != nil {
		lnk.logger.Warnf("datalink: %s", err.Error())
		lnk.tracer.OnCorruptFrame(len(raw))
		if lnk.ctrl.shouldNAK() {
			lnk.sendControl(model.FrameNAK)
		}
		return
	}
	frame.Log(lnk.logger, model.DirectionIncoming)
	lnk.tracer.OnFrameIn(frame)

	switch frame.Kind {
	case model.FrameData:
		lnk.receiver.onFrameData(frame)
	case model.FrameNAK:
		lnk.sender.onNAK(frame.ACK)
	}
	lnk.sender.onACKProgress(frame.ACK)
}

// updateIntake enables the producer iff there is room in the window and
// the channel can transmit.
func (lnk *Link) updateIntake() {
	enabled := !lnk.sender.full() && lnk.channelReady
	if enabled != lnk.intake {
		lnk.logger.Debugf("datalink: intake enabled=%v", enabled)
	}
	lnk.intake = enabled
	lnk.producer.SetIntake(enabled)
	lnk.tracer.OnWindow(lnk.sender.nbuffered, enabled)
}

//
// frameTransmitter implementation.
//

func (lnk *Link) sendData(seq seqspace.Seq, cause model.SendCause) {
	frame := lnk.codec.Build(model.FrameData, seq, lnk.receiver.frameExpected, lnk.sender.payload(seq))
	lnk.transmit(frame, cause)
	lnk.ctrl.startDataTimer(seq)
}

func (lnk *Link) sendControl(kind model.FrameKind) {
	runtimex.Assert(kind == model.FrameACK || kind == model.FrameNAK, "datalink: sendControl with DATA")
	frame := lnk.codec.Build(kind, 0, lnk.receiver.frameExpected, nil)
	lnk.transmit(frame, model.SendControl)
	if kind == model.FrameNAK {
		lnk.ctrl.onNAKSent()
	}
}

// transmit serializes and hands the frame to the physical layer. Any frame
// carries the piggyback ack, so the delayed-ack timer is no longer needed.
func (lnk *Link) transmit(frame *model.Frame, cause model.SendCause) {
	raw, err := lnk.codec.Encode(frame)
	runtimex.PanicOnError(err, "datalink: cannot encode frame")
	frame.Log(lnk.logger, model.DirectionOutgoing)
	lnk.tracer.OnFrameOut(frame, cause)
	lnk.channelReady = lnk.phy.Transmit(raw)
	lnk.ctrl.stopACKTimer()
}

var _ frameTransmitter = &Link{}

// Snapshot is a copy of the protocol state variables.
type Snapshot struct {
	AckExpected     seqspace.Seq
	NextFrameToSend seqspace.Seq
	NBuffered       int
	FrameExpected   seqspace.Seq
	TooFar          seqspace.Seq
	NoNAK           bool
	ChannelReady    bool
	Intake          bool
}

// Snapshot returns the current state. It MUST NOT be called concurrently
// with [Link.Run].
func (lnk *Link) Snapshot() Snapshot {
	return Snapshot{
		AckExpected:     lnk.sender.ackExpected,
		NextFrameToSend: lnk.sender.nextFrameToSend,
		NBuffered:       lnk.sender.nbuffered,
		FrameExpected:   lnk.receiver.frameExpected,
		TooFar:          lnk.receiver.tooFar,
		NoNAK:           lnk.ctrl.noNAK,
		ChannelReady:    lnk.channelReady,
		Intake:          lnk.intake,
	}
}
