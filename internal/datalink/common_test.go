package datalink

import (
	"testing"

	"github.com/apex/log"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/bytesx"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/framecodec"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/linktest"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

// station is a link wired to fake collaborators.
type station struct {
	lnk      *Link
	codec    *framecodec.Codec
	phy      *linktest.PhysicalRecorder
	producer *linktest.ProducerQueue
	consumer *linktest.ConsumerRecorder
	timers   *linktest.ManualTimers

	// forwarded is how many transmitted frames have been forwarded to the peer.
	forwarded int
}

func newStation(t *testing.T, bits int, packets ...string) *station {
	t.Helper()
	log.SetLevel(log.DebugLevel)
	cfg := config.NewConfig(config.WithSeqBits(bits), config.WithLogger(log.Log))
	codec := framecodec.New(cfg.Space(), cfg.MaxPacketSize())
	st := &station{
		codec:    codec,
		phy:      linktest.NewPhysicalRecorder(codec),
		producer: linktest.NewProducerQueue(packets...),
		consumer: &linktest.ConsumerRecorder{},
		timers:   linktest.NewManualTimers(),
	}
	st.lnk = NewLink(cfg, make(chan model.Event), Collaborators{
		Physical: st.phy,
		Producer: st.producer,
		Consumer: st.consumer,
		Timers:   st.timers,
	})
	st.lnk.HandleEvent(model.ChannelReady{})
	return st
}

// submit makes the link take n packets from the producer.
func (st *station) submit(n int) {
	for i := 0; i < n; i++ {
		st.lnk.HandleEvent(model.NewPacketReady{})
	}
}

// receive feeds the link with the given test frames.
func (st *station) receive(frames ...string) {
	for _, ev := range linktest.FrameArrivals(st.codec, frames...) {
		st.lnk.HandleEvent(ev)
	}
}

// expire fires the given timer, failing the test if it is not pending.
func (st *station) expire(t *testing.T, id model.TimerID) {
	t.Helper()
	ev, ok := st.timers.Expire(id)
	if !ok {
		t.Fatalf("timer %d is not pending", id)
	}
	st.lnk.HandleEvent(ev)
}

// sent returns the frames transmitted so far with the given kind.
func (st *station) sent(kind model.FrameKind) []*model.Frame {
	out := []*model.Frame{}
	for _, f := range st.phy.Frames() {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// impairment maps a frame transmitted by station `from` to what reaches the
// peer. A nil return drops the frame.
type impairment func(from string, raw []byte) []byte

// corruptOnce flips a bit in the first DATA frame with the given seq sent by `who`.
func corruptOnce(who string, codec *framecodec.Codec, seq int) impairment {
	done := false
	return func(from string, raw []byte) []byte {
		if done || from != who {
			return raw
		}
		f, err := codec.Decode(raw)
		if err != nil || f.Kind != model.FrameData || int(f.Seq) != seq {
			return raw
		}
		done = true
		return bytesx.FlipBit(raw, 20)
	}
}

// pump runs a deterministic simulation of two stations until nothing is
// left to do. Timers only fire when the channel is idle, which models
// timeouts much longer than the propagation delay.
func pump(t *testing.T, a, b *station, impair impairment) {
	t.Helper()
	names := map[*station]string{a: "a", b: "b"}
	forward := func(from, to *station) bool {
		raw := from.phy.Raw()
		progress := false
		for ; from.forwarded < len(raw); from.forwarded++ {
			progress = true
			frame := raw[from.forwarded]
			if impair != nil {
				frame = impair(names[from], frame)
			}
			if frame != nil {
				to.lnk.HandleEvent(model.FrameArrived{Raw: frame})
			}
		}
		return progress
	}
	turn := 0
	fireOne := func() bool {
		for _, st := range []*station{a, b} {
			if ev, ok := st.timers.Expire(model.ACKTimerID); ok {
				st.lnk.HandleEvent(ev)
				return true
			}
		}
		// data timers fire oldest first, alternating between stations
		order := []*station{a, b}
		if turn%2 == 1 {
			order = []*station{b, a}
		}
		turn++
		for _, st := range order {
			if ev, ok := st.timers.ExpireOldest(); ok {
				st.lnk.HandleEvent(ev)
				return true
			}
		}
		return false
	}
	for i := 0; i < 10000; i++ {
		progress := false
		for _, st := range []*station{a, b} {
			if st.producer.Intake() && st.producer.Len() > 0 {
				st.lnk.HandleEvent(model.NewPacketReady{})
				progress = true
			}
		}
		if forward(a, b) {
			progress = true
		}
		if forward(b, a) {
			progress = true
		}
		if !progress && !fireOne() {
			return
		}
	}
	t.Fatal("simulation did not converge")
}

func seqFrom(n int) seqspace.Seq {
	return seqspace.Seq(n)
}
