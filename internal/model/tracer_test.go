package model

import (
	"encoding/json"
	"testing"
)

func TestLoggedFrame_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		frame LoggedFrame
		want  string
	}{
		{
			name: "outgoing retransmission",
			frame: LoggedFrame{
				Direction:   DirectionOutgoing,
				Kind:        FrameData,
				Seq:         2,
				ACK:         7,
				PayloadSize: 10,
				Cause:       SendNAK,
			},
			want: `{"kind":"DATA","seq":2,"ack":7,"direction":"send","payload_size":10,"cause":"nak"}`,
		},
		{
			name: "incoming ack omits the cause",
			frame: LoggedFrame{
				Direction: DirectionIncoming,
				Kind:      FrameACK,
				ACK:       3,
			},
			want: `{"kind":"ACK","seq":0,"ack":3,"direction":"recv","payload_size":0}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.frame)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestDataTimerID(t *testing.T) {
	if DataTimerID(0) == ACKTimerID {
		t.Errorf("data timer ids must not collide with the ack timer")
	}
	if DataTimerID(5) != TimerID(5) {
		t.Errorf("DataTimerID(5) = %v", DataTimerID(5))
	}
}
