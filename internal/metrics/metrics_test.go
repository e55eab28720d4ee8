package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
)

func TestMetrics(t *testing.T) {
	m := New("test")
	data := &model.Frame{Kind: model.FrameData, Seq: 1, Payload: model.Packet("abc")}
	nak := &model.Frame{Kind: model.FrameNAK}

	m.OnFrameOut(data, model.SendFirst)
	m.OnFrameOut(data, model.SendTimeout)
	m.OnFrameOut(data, model.SendNAK)
	m.OnFrameOut(nak, model.SendControl)
	m.OnFrameIn(nak)
	m.OnCorruptFrame(7)
	m.OnDelivered(1, 3)
	m.OnWindow(3, false)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"data sent", testutil.ToFloat64(m.FramesSent.WithLabelValues("DATA")), 3},
		{"nak sent", testutil.ToFloat64(m.FramesSent.WithLabelValues("NAK")), 1},
		{"timeout retransmissions", testutil.ToFloat64(m.Retransmissions.WithLabelValues("timeout")), 1},
		{"nak retransmissions", testutil.ToFloat64(m.Retransmissions.WithLabelValues("nak")), 1},
		{"nak received", testutil.ToFloat64(m.FramesReceived.WithLabelValues("NAK")), 1},
		{"corrupt", testutil.ToFloat64(m.CorruptFrames), 1},
		{"delivered", testutil.ToFloat64(m.PacketsDelivered), 1},
		{"bytes", testutil.ToFloat64(m.BytesDelivered), 3},
		{"outstanding", testutil.ToFloat64(m.WindowOutstanding), 3},
		{"intake", testutil.ToFloat64(m.IntakeEnabled), 0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New("test")
	m.OnCorruptFrame(1)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `datalink_corrupt_frames_total{station="test"} 1`) {
		t.Errorf("unexpected body:\n%s", body)
	}
}
