package datalink

import (
	"testing"

	"github.com/apex/log"
	"github.com/google/go-cmp/cmp"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/linktest"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// sentFrame records a call to frameTransmitter.sendData.
type sentFrame struct {
	Seq   seqspace.Seq
	Cause model.SendCause
}

// recordingTransmitter is a frameTransmitter for tests.
type recordingTransmitter struct {
	data    []sentFrame
	control []model.FrameKind

	// ctrl, if not nil, is notified of sent NAKs like the link does.
	ctrl *retransmitController
}

func (rt *recordingTransmitter) sendData(seq seqspace.Seq, cause model.SendCause) {
	rt.data = append(rt.data, sentFrame{seq, cause})
}

func (rt *recordingTransmitter) sendControl(kind model.FrameKind) {
	rt.control = append(rt.control, kind)
	if rt.ctrl != nil && kind == model.FrameNAK {
		rt.ctrl.onNAKSent()
	}
}

var _ frameTransmitter = &recordingTransmitter{}

func newTestSender(ackExpected, nextFrameToSend seqspace.Seq, nbuffered int) (*senderWindow, *recordingTransmitter, *linktest.ManualTimers) {
	log.SetLevel(log.DebugLevel)
	timers := linktest.NewManualTimers()
	tx := &recordingTransmitter{}
	ctrl := newRetransmitController(timers, 0, 0)
	s := newSenderWindow(log.Log, seqspace.MustNew(3), ctrl, tx)
	s.ackExpected = ackExpected
	s.nextFrameToSend = nextFrameToSend
	s.nbuffered = nbuffered
	for seq := ackExpected; seq != nextFrameToSend; seq = s.space.Inc(seq) {
		timers.Start(model.DataTimerID(seq), 0)
	}
	return s, tx, timers
}

//
// tests for senderWindow
//

func Test_senderWindow_onACKProgress(t *testing.T) {
	type fields struct {
		ackExpected     seqspace.Seq
		nextFrameToSend seqspace.Seq
		nbuffered       int
	}
	tests := []struct {
		name            string
		fields          fields
		ack             seqspace.Seq
		want            int
		wantAckExpected seqspace.Seq
	}{
		{
			name:            "empty window ignores any ack",
			fields:          fields{0, 0, 0},
			ack:             7,
			want:            0,
			wantAckExpected: 0,
		},
		{
			name:            "cumulative ack",
			fields:          fields{0, 3, 3},
			ack:             1,
			want:            2,
			wantAckExpected: 2,
		},
		{
			name:            "ack across the wraparound",
			fields:          fields{6, 2, 4},
			ack:             0,
			want:            3,
			wantAckExpected: 1,
		},
		{
			name:            "ack of the whole window",
			fields:          fields{6, 2, 4},
			ack:             1,
			want:            4,
			wantAckExpected: 2,
		},
		{
			name:            "old ack is ignored",
			fields:          fields{6, 2, 4},
			ack:             5,
			want:            0,
			wantAckExpected: 6,
		},
		{
			name:            "ack beyond the window is ignored",
			fields:          fields{6, 2, 4},
			ack:             2,
			want:            0,
			wantAckExpected: 6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, timers := newTestSender(tt.fields.ackExpected, tt.fields.nextFrameToSend, tt.fields.nbuffered)
			if got := s.onACKProgress(tt.ack); got != tt.want {
				t.Errorf("senderWindow.onACKProgress() = %v, want %v", got, tt.want)
			}
			if s.ackExpected != tt.wantAckExpected {
				t.Errorf("ackExpected = %v, want %v", s.ackExpected, tt.wantAckExpected)
			}
			if s.nbuffered != tt.fields.nbuffered-tt.want {
				t.Errorf("nbuffered = %v", s.nbuffered)
			}
			for seq := tt.fields.ackExpected; seq != s.ackExpected; seq = s.space.Inc(seq) {
				if timers.Pending(model.DataTimerID(seq)) {
					t.Errorf("timer for acked seq %d still pending", seq)
				}
			}
		})
	}
}

func Test_senderWindow_onNAK(t *testing.T) {
	tests := []struct {
		name string
		ack  seqspace.Seq
		want []sentFrame
	}{
		{
			name: "nak for the first outstanding frame",
			ack:  5,
			want: []sentFrame{{6, model.SendNAK}},
		},
		{
			name: "nak after the wraparound",
			ack:  0,
			want: []sentFrame{{1, model.SendNAK}},
		},
		{
			name: "nak for a frame not yet sent",
			ack:  1,
			want: nil,
		},
		{
			name: "nak for an acked frame",
			ack:  3,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tx, _ := newTestSender(6, 2, 4)
			if got := s.onNAK(tt.ack); got != (tt.want != nil) {
				t.Errorf("senderWindow.onNAK() = %v", got)
			}
			if diff := cmp.Diff(tt.want, tx.data); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func Test_senderWindow_onTimeout(t *testing.T) {
	s, tx, _ := newTestSender(6, 2, 4)
	s.onTimeout(7)
	s.onTimeout(3)
	if diff := cmp.Diff([]sentFrame{{7, model.SendTimeout}}, tx.data); diff != "" {
		t.Error(diff)
	}
}

func Test_senderWindow_submit(t *testing.T) {
	s, tx, _ := newTestSender(6, 7, 1)
	s.submit(model.Packet("a"))
	s.submit(model.Packet("b"))
	if diff := cmp.Diff([]sentFrame{{7, model.SendFirst}, {0, model.SendFirst}}, tx.data); diff != "" {
		t.Error(diff)
	}
	if s.nextFrameToSend != 1 || s.nbuffered != 3 {
		t.Errorf("unexpected state next=%d nbuffered=%d", s.nextFrameToSend, s.nbuffered)
	}
	if string(s.payload(0)) != "b" {
		t.Errorf("unexpected payload %q", s.payload(0))
	}

	s.submit(model.Packet("c"))
	if !s.full() {
		t.Fatal("expected a full window")
	}
	linktest.AssertPanic(t, func() {
		s.submit(model.Packet("d"))
	})
}
