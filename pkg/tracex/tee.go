package tracex

import (
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// Tee forwards every callback to all the given tracers. TimeNow comes from
// the first one.
type Tee []model.Tracer

var _ model.Tracer = Tee{}

// TimeNow implements model.Tracer.
func (t Tee) TimeNow() time.Time {
	if len(t) <= 0 {
		return time.Now()
	}
	return t[0].TimeNow()
}

// OnFrameOut implements model.Tracer.
func (t Tee) OnFrameOut(frame *model.Frame, cause model.SendCause) {
	for _, tr := range t {
		tr.OnFrameOut(frame, cause)
	}
}

// OnFrameIn implements model.Tracer.
func (t Tee) OnFrameIn(frame *model.Frame) {
	for _, tr := range t {
		tr.OnFrameIn(frame)
	}
}

// OnCorruptFrame implements model.Tracer.
func (t Tee) OnCorruptFrame(size int) {
	for _, tr := range t {
		tr.OnCorruptFrame(size)
	}
}

// OnDelivered implements model.Tracer.
func (t Tee) OnDelivered(seq seqspace.Seq, size int) {
	for _, tr := range t {
		tr.OnDelivered(seq, size)
	}
}

// OnWindow implements model.Tracer.
func (t Tee) OnWindow(outstanding int, intake bool) {
	for _, tr := range t {
		tr.OnWindow(outstanding, intake)
	}
}
