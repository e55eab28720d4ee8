package datalink

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/bytesx"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/linktest"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
)

func packets(n int) []string {
	out := []string{}
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("P%d", i))
	}
	return out
}

func TestLink_lossless_roundTrip(t *testing.T) {
	for _, bits := range []int{2, 3, 4} {
		t.Run(fmt.Sprintf("bits=%d", bits), func(t *testing.T) {
			want := packets(40)
			a := newStation(t, bits, want...)
			b := newStation(t, bits)
			pump(t, a, b, nil)

			if diff := cmp.Diff(want, b.consumer.Delivered()); diff != "" {
				t.Fatal(diff)
			}
			snap := a.lnk.Snapshot()
			if snap.NBuffered != 0 || snap.AckExpected != snap.NextFrameToSend {
				t.Fatalf("unexpected sender state %+v", snap)
			}
			if len(a.sent(model.FrameNAK))+len(b.sent(model.FrameNAK)) != 0 {
				t.Fatal("unexpected NAK on a lossless channel")
			}
		})
	}
}

func TestLink_fullDuplex(t *testing.T) {
	a := newStation(t, 3, "a0", "a1", "a2", "a3", "a4")
	b := newStation(t, 3, "b0", "b1", "b2")
	pump(t, a, b, nil)

	if diff := cmp.Diff([]string{"a0", "a1", "a2", "a3", "a4"}, b.consumer.Delivered()); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]string{"b0", "b1", "b2"}, a.consumer.Delivered()); diff != "" {
		t.Error(diff)
	}
}

func TestLink_endToEnd_corruptedOnce(t *testing.T) {
	a := newStation(t, 3, packets(6)...)
	b := newStation(t, 3)
	pump(t, a, b, corruptOnce("a", a.codec, 2))

	if diff := cmp.Diff(packets(6), b.consumer.Delivered()); diff != "" {
		t.Fatal(diff)
	}
	naks := b.sent(model.FrameNAK)
	if len(naks) != 1 {
		t.Fatalf("expected exactly one NAK, got %d", len(naks))
	}
	if naks[0].ACK != 1 {
		t.Fatalf("expected the NAK to ask for seq 2, got ack=%d", naks[0].ACK)
	}
	seq2 := 0
	for _, f := range a.sent(model.FrameData) {
		if f.Seq == 2 {
			seq2++
			if string(f.Payload) != "P2" {
				t.Fatalf("unexpected payload for seq 2: %q", f.Payload)
			}
		}
	}
	if seq2 != 2 {
		t.Fatalf("expected seq 2 to be sent twice, got %d", seq2)
	}
	if got := a.lnk.Snapshot().AckExpected; got != 6 {
		t.Fatalf("expected ackExpected=6, got %d", got)
	}
}

func TestLink_lossyChannel(t *testing.T) {
	// drop every third frame in both directions
	count := 0
	drop := func(from string, raw []byte) []byte {
		count++
		if count%3 == 0 {
			return nil
		}
		return raw
	}
	a := newStation(t, 3, packets(20)...)
	b := newStation(t, 3, packets(7)...)
	pump(t, a, b, drop)

	if diff := cmp.Diff(packets(20), b.consumer.Delivered()); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff(packets(7), a.consumer.Delivered()); diff != "" {
		t.Error(diff)
	}
}

func TestLink_admissionGate(t *testing.T) {
	t.Run("intake closes on the NrBufs-th submission", func(t *testing.T) {
		a := newStation(t, 3, packets(6)...)
		if !a.producer.Intake() {
			t.Fatal("expected intake enabled after ChannelReady")
		}
		for i := 1; i <= 4; i++ {
			a.submit(1)
			if got, want := a.producer.Intake(), i < 4; got != want {
				t.Fatalf("after %d submissions: intake=%v, want %v", i, got, want)
			}
		}
		a.submit(1)
		if a.producer.Taken() != 4 {
			t.Fatalf("expected 4 packets taken, got %d", a.producer.Taken())
		}
		if a.lnk.Snapshot().NBuffered != 4 {
			t.Fatal("expected a full window")
		}
	})

	t.Run("intake reopens on ack progress", func(t *testing.T) {
		a := newStation(t, 3, packets(6)...)
		a.submit(4)
		a.receive("ACK ack:1")
		if !a.producer.Intake() {
			t.Fatal("expected intake enabled")
		}
		if got := a.lnk.Snapshot().NBuffered; got != 2 {
			t.Fatalf("expected 2 outstanding, got %d", got)
		}
	})

	t.Run("intake follows the channel", func(t *testing.T) {
		a := newStation(t, 3, packets(6)...)
		a.phy.SetReady(false)
		a.submit(1)
		if a.producer.Intake() {
			t.Fatal("expected intake disabled while the channel is busy")
		}
		a.phy.SetReady(true)
		a.lnk.HandleEvent(model.ChannelReady{})
		if !a.producer.Intake() {
			t.Fatal("expected intake enabled after ChannelReady")
		}
	})

	t.Run("stale ChannelReady keeps intake closed", func(t *testing.T) {
		a := newStation(t, 3, packets(6)...)
		a.phy.SetReady(false)
		a.submit(1)
		// the channel drained and filled again before the event was handled
		a.lnk.HandleEvent(model.ChannelReady{})
		if a.producer.Intake() {
			t.Fatal("expected intake disabled while the channel is still busy")
		}
		if a.lnk.Snapshot().ChannelReady {
			t.Fatal("expected the channel to be busy")
		}
		a.phy.SetReady(true)
		a.lnk.HandleEvent(model.ChannelReady{})
		if !a.producer.Intake() {
			t.Fatal("expected intake enabled once the channel drained")
		}
	})

	t.Run("no intake before the channel is ready", func(t *testing.T) {
		a := newStation(t, 3)
		a.lnk.channelReady = false
		a.lnk.HandleEvent(model.NewPacketReady{})
		if a.producer.Intake() {
			t.Fatal("expected intake disabled")
		}
	})

	t.Run("empty producer is a no-op", func(t *testing.T) {
		a := newStation(t, 3)
		a.submit(1)
		if len(a.phy.Raw()) != 0 {
			t.Fatal("expected no transmission")
		}
	})
}

func TestLink_outOfOrderRecovery(t *testing.T) {
	b := newStation(t, 3)
	corrupted := bytesx.FlipBit(linktest.MustEncode(b.codec, "DATA 0 ack:7 payload:p0"), 30)
	b.lnk.HandleEvent(model.FrameArrived{Raw: corrupted})
	b.receive(
		"DATA 1 ack:7 payload:p1",
		"DATA 0 ack:7 payload:p0",
		"DATA 2 ack:7 payload:p2",
	)
	if diff := cmp.Diff([]string{"p0", "p1", "p2"}, b.consumer.Delivered()); diff != "" {
		t.Fatal(diff)
	}
	naks := b.sent(model.FrameNAK)
	if len(naks) != 1 || naks[0].ACK != 7 {
		t.Fatalf("expected one NAK with ack=7, got %v", naks)
	}
	snap := b.lnk.Snapshot()
	if snap.FrameExpected != 3 || snap.TooFar != 7 || !snap.NoNAK {
		t.Fatalf("unexpected receiver state %+v", snap)
	}
}

func TestLink_duplicates(t *testing.T) {
	t.Run("an already delivered frame is not delivered again", func(t *testing.T) {
		b := newStation(t, 3)
		b.receive("DATA 0 ack:7 payload:p0", "DATA 0 ack:7 payload:p0")
		if diff := cmp.Diff([]string{"p0"}, b.consumer.Delivered()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("an already buffered frame is not buffered again", func(t *testing.T) {
		b := newStation(t, 3)
		b.receive("DATA 2 ack:7 payload:p2", "DATA 2 ack:7 payload:xx", "[0..1] DATA ack:7 payload:p")
		if diff := cmp.Diff([]string{"p", "p", "p2"}, b.consumer.Delivered()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("a frame outside the window is ignored", func(t *testing.T) {
		b := newStation(t, 3)
		b.receive("DATA 5 ack:7 payload:p5")
		if len(b.consumer.Delivered()) != 0 {
			t.Fatal("unexpected delivery")
		}
		if len(b.sent(model.FrameNAK)) != 1 {
			t.Fatal("expected a NAK for the out-of-order frame")
		}
	})
}

func TestLink_nakSuppression(t *testing.T) {
	b := newStation(t, 3)
	b.receive("DATA 1 ack:7", "DATA 2 ack:7")
	if got := len(b.sent(model.FrameNAK)); got != 1 {
		t.Fatalf("expected one NAK, got %d", got)
	}

	b.receive("DATA 0 ack:7", "DATA 5 ack:7")
	if got := len(b.sent(model.FrameNAK)); got != 2 {
		t.Fatalf("expected a new NAK after in-order delivery, got %d", got)
	}

	b.lnk.HandleEvent(model.FrameArrived{Raw: []byte{1, 2}})
	if got := len(b.sent(model.FrameNAK)); got != 2 {
		t.Fatalf("expected corrupt frame not to send another NAK, got %d", got)
	}
}

func TestLink_corruptFrameSendsNAK(t *testing.T) {
	b := newStation(t, 3)
	b.lnk.HandleEvent(model.FrameArrived{Raw: []byte{0xde, 0xad}})
	naks := b.sent(model.FrameNAK)
	if len(naks) != 1 || naks[0].ACK != 7 {
		t.Fatalf("expected one NAK with ack=7, got %v", naks)
	}
	if b.lnk.Snapshot().NoNAK {
		t.Fatal("expected noNAK to be false")
	}
}

func TestLink_fastRetransmit(t *testing.T) {
	a := newStation(t, 3, packets(3)...)
	a.submit(3)
	a.phy.Reset()

	a.receive("NAK ack:0")
	data := a.sent(model.FrameData)
	if len(data) != 1 || data[0].Seq != 1 || string(data[0].Payload) != "P1" {
		t.Fatalf("expected immediate resend of seq 1, got %v", data)
	}
	if got := a.lnk.Snapshot().AckExpected; got != 1 {
		t.Fatalf("expected the NAK to ack seq 0, got ackExpected=%d", got)
	}

	a.phy.Reset()
	a.receive("NAK ack:5")
	if len(a.phy.Raw()) != 0 {
		t.Fatal("expected no resend for a seq outside the window")
	}
}

func TestLink_timeouts(t *testing.T) {
	t.Run("resends exactly the expired frame", func(t *testing.T) {
		a := newStation(t, 3, packets(3)...)
		a.submit(3)
		a.phy.Reset()
		a.expire(t, model.DataTimerID(1))
		data := a.sent(model.FrameData)
		if len(data) != 1 || data[0].Seq != 1 {
			t.Fatalf("expected resend of seq 1, got %v", data)
		}
		if !a.timers.Pending(model.DataTimerID(1)) {
			t.Fatal("expected the timer to be restarted")
		}
	})

	t.Run("ignores a stale expiration", func(t *testing.T) {
		a := newStation(t, 3, packets(1)...)
		a.submit(1)
		ev, _ := a.timers.Expire(model.DataTimerID(0))
		a.receive("ACK ack:0")
		a.phy.Reset()
		a.lnk.HandleEvent(ev)
		if len(a.phy.Raw()) != 0 {
			t.Fatal("unexpected transmission")
		}
	})

	t.Run("ack progress stops the data timers", func(t *testing.T) {
		a := newStation(t, 3, packets(2)...)
		a.submit(2)
		a.receive("ACK ack:1")
		for seq := 0; seq < 2; seq++ {
			if a.timers.Pending(model.DataTimerID(seqFrom(seq))) {
				t.Fatalf("timer for seq %d still pending", seq)
			}
		}
	})

	t.Run("data timers use the configured duration", func(t *testing.T) {
		a := newStation(t, 3, packets(1)...)
		a.submit(1)
		if got := a.timers.Duration(model.DataTimerID(0)); got != 3000*time.Millisecond {
			t.Fatalf("unexpected duration %v", got)
		}
	})
}

func TestLink_delayedACK(t *testing.T) {
	t.Run("ack timer produces a pure ACK", func(t *testing.T) {
		b := newStation(t, 3)
		b.receive("DATA 0 ack:7", "DATA 1 ack:7")
		if b.timers.Starts(model.ACKTimerID) != 1 {
			t.Fatal("expected the ack timer to be started once")
		}
		b.expire(t, model.ACKTimerID)
		acks := b.sent(model.FrameACK)
		if len(acks) != 1 || acks[0].ACK != 1 {
			t.Fatalf("expected ACK with ack=1, got %v", acks)
		}
	})

	t.Run("outgoing data piggybacks the ack", func(t *testing.T) {
		b := newStation(t, 3, "b0")
		b.receive("DATA 0 ack:7")
		b.submit(1)
		data := b.sent(model.FrameData)
		if len(data) != 1 || data[0].ACK != 0 {
			t.Fatalf("expected piggyback ack=0, got %v", data)
		}
		if b.timers.Pending(model.ACKTimerID) {
			t.Fatal("expected the ack timer to be stopped")
		}
	})

	t.Run("stale ack timeout is ignored", func(t *testing.T) {
		b := newStation(t, 3, "b0")
		b.receive("DATA 0 ack:7")
		ev, _ := b.timers.Expire(model.ACKTimerID)
		b.submit(1)
		b.phy.Reset()
		b.lnk.HandleEvent(ev)
		if len(b.phy.Raw()) != 0 {
			t.Fatal("unexpected transmission")
		}
	})
}

func TestLink_Run(t *testing.T) {
	t.Run("returns when the context is done", func(t *testing.T) {
		a := newStation(t, 3)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := a.lnk.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("dispatches events until the channel is closed", func(t *testing.T) {
		a := newStation(t, 3, "P0")
		events := make(chan model.Event, 2)
		a.lnk.events = events
		events <- model.NewPacketReady{}
		close(events)
		if err := a.lnk.Run(context.Background()); !errors.Is(err, ErrEventsClosed) {
			t.Fatalf("unexpected error %v", err)
		}
		if len(a.sent(model.FrameData)) != 1 {
			t.Fatal("expected one DATA frame")
		}
	})
}
