// Package metrics exports link counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

const namespace = "datalink"

// Metrics implements [model.Tracer] by updating Prometheus collectors.
// The zero value is invalid; use [New].
type Metrics struct {
	FramesSent        *prometheus.CounterVec
	Retransmissions   *prometheus.CounterVec
	FramesReceived    *prometheus.CounterVec
	CorruptFrames     prometheus.Counter
	PacketsDelivered  prometheus.Counter
	BytesDelivered    prometheus.Counter
	WindowOutstanding prometheus.Gauge
	IntakeEnabled     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors, labelled with the station id, and registers
// them with a new registry.
func New(station string) *Metrics {
	labels := prometheus.Labels{"station": station}
	m := &Metrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "frames_sent_total",
			Help:        "Total frames handed to the physical layer",
			ConstLabels: labels,
		}, []string{"kind"}),

		Retransmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "retransmissions_total",
			Help:        "Total DATA frames sent again",
			ConstLabels: labels,
		}, []string{"cause"}),

		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "frames_received_total",
			Help:        "Total valid frames received",
			ConstLabels: labels,
		}, []string{"kind"}),

		CorruptFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "corrupt_frames_total",
			Help:        "Total received frames failing validation",
			ConstLabels: labels,
		}),

		PacketsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "packets_delivered_total",
			Help:        "Total packets passed to the network layer",
			ConstLabels: labels,
		}),

		BytesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "bytes_delivered_total",
			Help:        "Total payload bytes passed to the network layer",
			ConstLabels: labels,
		}),

		WindowOutstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "window_outstanding",
			Help:        "Number of unacknowledged DATA frames",
			ConstLabels: labels,
		}),

		IntakeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "intake_enabled",
			Help:        "Whether the link accepts new packets (1 = yes)",
			ConstLabels: labels,
		}),

		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.FramesSent,
		m.Retransmissions,
		m.FramesReceived,
		m.CorruptFrames,
		m.PacketsDelivered,
		m.BytesDelivered,
		m.WindowOutstanding,
		m.IntakeEnabled,
	)
	return m
}

// Registry returns the registry containing our collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TimeNow implements model.Tracer.
func (m *Metrics) TimeNow() time.Time {
	return time.Now()
}

// OnFrameOut implements model.Tracer.
func (m *Metrics) OnFrameOut(frame *model.Frame, cause model.SendCause) {
	m.FramesSent.WithLabelValues(frame.Kind.String()).Inc()
	switch cause {
	case model.SendTimeout, model.SendNAK:
		m.Retransmissions.WithLabelValues(cause.String()).Inc()
	}
}

// OnFrameIn implements model.Tracer.
func (m *Metrics) OnFrameIn(frame *model.Frame) {
	m.FramesReceived.WithLabelValues(frame.Kind.String()).Inc()
}

// OnCorruptFrame implements model.Tracer.
func (m *Metrics) OnCorruptFrame(size int) {
	m.CorruptFrames.Inc()
}

// OnDelivered implements model.Tracer.
func (m *Metrics) OnDelivered(seq seqspace.Seq, size int) {
	m.PacketsDelivered.Inc()
	m.BytesDelivered.Add(float64(size))
}

// OnWindow implements model.Tracer.
func (m *Metrics) OnWindow(outstanding int, intake bool) {
	m.WindowOutstanding.Set(float64(outstanding))
	if intake {
		m.IntakeEnabled.Set(1)
	} else {
		m.IntakeEnabled.Set(0)
	}
}

var _ model.Tracer = &Metrics{}
