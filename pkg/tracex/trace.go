// Package tracex implements a link tracer that can be passed to the link
// constructor to observe frame events.
package tracex

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/optional"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// Event is a link event collected by this [model.Tracer].
type Event struct {
	// EventType is the type for this event.
	EventType model.TraceEventType

	// AtTime is the time for this event.
	AtTime time.Time

	// Station identifies the station that logged the event.
	Station string

	// LoggedFrame is the frame metadata, for frame events.
	LoggedFrame optional.Value[model.LoggedFrame]

	// Seq is the sequence number of a delivered packet.
	Seq seqspace.Seq

	// Size is the size of a delivered packet or of a corrupt frame.
	Size int

	// zeroTime is the time when we started the trace.
	zeroTime time.Time
}

var _ model.TraceEvent = &Event{}

func newEvent(etype model.TraceEventType, t time.Time, t0 time.Time, station string) *Event {
	return &Event{
		EventType:   etype,
		AtTime:      t,
		Station:     station,
		LoggedFrame: optional.None[model.LoggedFrame](),
		zeroTime:    t0,
	}
}

// Type implements model.TraceEvent.
func (e *Event) Type() model.TraceEventType {
	return e.EventType
}

// Time implements model.TraceEvent.
func (e *Event) Time() time.Time {
	return e.AtTime
}

// Frame implements model.TraceEvent.
func (e *Event) Frame() optional.Value[model.LoggedFrame] {
	return e.LoggedFrame
}

// MarshalJSON implements json.Marshaler.
func (e *Event) MarshalJSON() ([]byte, error) {
	j := struct {
		EventType string             `json:"operation"`
		Station   string             `json:"station,omitempty"`
		AtTime    float64            `json:"t"`
		Frame     *model.LoggedFrame `json:"frame,omitempty"`
		Seq       *seqspace.Seq      `json:"seq,omitempty"`
		Size      int                `json:"size,omitempty"`
	}{
		EventType: e.EventType.String(),
		Station:   e.Station,
		AtTime:    e.AtTime.Sub(e.zeroTime).Seconds(),
		Size:      e.Size,
	}
	if !e.LoggedFrame.IsNone() {
		lf := e.LoggedFrame.Unwrap()
		j.Frame = &lf
	}
	if e.EventType == model.TraceEventDelivered {
		seq := e.Seq
		j.Seq = &seq
	}
	return json.Marshal(j)
}

// Tracer implements [model.Tracer] by keeping the events in memory.
type Tracer struct {
	// events is the array of link events.
	events []*Event

	// mu guards access to the events.
	mu sync.Mutex

	// station is an optional identifier added to any events produced by this tracer.
	station string

	// zeroTime is the time when we started a frame trace.
	zeroTime time.Time

	// timeNow returns the current time.
	timeNow func() time.Time
}

// NewTracer returns a Tracer with the passed start time.
func NewTracer(start time.Time) *Tracer {
	return &Tracer{
		zeroTime: start,
		timeNow:  time.Now,
	}
}

// NewTracerWithStation returns a Tracer with the passed start time that tags every
// event with the given station identifier.
func NewTracerWithStation(start time.Time, station string) *Tracer {
	t := NewTracer(start)
	t.station = station
	return t
}

// TimeNow allows to manipulate time for deterministic tests.
func (t *Tracer) TimeNow() time.Time {
	return t.timeNow()
}

// OnFrameOut implements model.Tracer.
func (t *Tracer) OnFrameOut(frame *model.Frame, cause model.SendCause) {
	t.append(model.TraceEventFrameOut, func(e *Event) {
		e.LoggedFrame = logFrame(frame, model.DirectionOutgoing, cause)
	})
}

// OnFrameIn implements model.Tracer.
func (t *Tracer) OnFrameIn(frame *model.Frame) {
	t.append(model.TraceEventFrameIn, func(e *Event) {
		e.LoggedFrame = logFrame(frame, model.DirectionIncoming, model.SendControl)
	})
}

// OnCorruptFrame implements model.Tracer.
func (t *Tracer) OnCorruptFrame(size int) {
	t.append(model.TraceEventCorrupt, func(e *Event) {
		e.Size = size
	})
}

// OnDelivered implements model.Tracer.
func (t *Tracer) OnDelivered(seq seqspace.Seq, size int) {
	t.append(model.TraceEventDelivered, func(e *Event) {
		e.Seq = seq
		e.Size = size
	})
}

// OnWindow implements model.Tracer. The window occupancy is not part of the trace.
func (t *Tracer) OnWindow(outstanding int, intake bool) {}

var _ model.Tracer = &Tracer{}

func (t *Tracer) append(etype model.TraceEventType, fill func(e *Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := newEvent(etype, t.TimeNow(), t.zeroTime, t.station)
	fill(e)
	t.events = append(t.events, e)
}

// Trace returns a copy of the array of events.
func (t *Tracer) Trace() []*Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Event{}, t.events...)
}

// WriteJSON writes the trace as a JSON array.
func (t *Tracer) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.Trace())
}

func logFrame(f *model.Frame, direction model.Direction, cause model.SendCause) optional.Value[model.LoggedFrame] {
	return optional.Some(model.LoggedFrame{
		Direction:   direction,
		Kind:        f.Kind,
		Seq:         f.Seq,
		ACK:         f.ACK,
		PayloadSize: len(f.Payload),
		Cause:       cause,
	})
}
