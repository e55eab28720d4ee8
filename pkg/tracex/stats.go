package tracex

import "github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"

// Stats summarizes a trace.
type Stats struct {
	DataSent      int `json:"data_sent"`
	ACKSent       int `json:"ack_sent"`
	NAKSent       int `json:"nak_sent"`
	TimeoutResent int `json:"timeout_resent"`
	NAKResent     int `json:"nak_resent"`
	FramesIn      int `json:"frames_in"`
	Corrupt       int `json:"corrupt"`
	Delivered     int `json:"delivered"`
	BytesIn       int `json:"bytes_delivered"`
}

// Stats computes the [Stats] of the events traced so far.
func (t *Tracer) Stats() Stats {
	var st Stats
	for _, e := range t.Trace() {
		switch e.EventType {
		case model.TraceEventFrameOut:
			lf := e.LoggedFrame.Unwrap()
			switch lf.Kind {
			case model.FrameData:
				st.DataSent++
			case model.FrameACK:
				st.ACKSent++
			case model.FrameNAK:
				st.NAKSent++
			}
			switch lf.Cause {
			case model.SendTimeout:
				st.TimeoutResent++
			case model.SendNAK:
				st.NAKResent++
			}
		case model.TraceEventFrameIn:
			st.FramesIn++
		case model.TraceEventCorrupt:
			st.Corrupt++
		case model.TraceEventDelivered:
			st.Delivered++
			st.BytesIn += e.Size
		}
	}
	return st
}
