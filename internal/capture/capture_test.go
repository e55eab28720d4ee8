package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
)

func TestWriter_roundTrip(t *testing.T) {
	t0 := time.Unix(1700000000, 0).UTC()
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, func() time.Time { return t0 })
	if err != nil {
		t.Fatal(err)
	}
	if err := w.RecordFrame(model.DirectionOutgoing, []byte{1, 0, 7, 'x'}); err != nil {
		t.Fatal(err)
	}
	if err := w.RecordFrame(model.DirectionIncoming, []byte{2, 3, 0}); err != nil {
		t.Fatal(err)
	}
	if err := w.RecordFrame(model.Direction(42), []byte{}); err == nil {
		t.Fatal("expected error for a wrong direction")
	}

	got, err := ReadAll(buf)
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{Time: t0, Direction: model.DirectionOutgoing, Frame: []byte{1, 0, 7, 'x'}},
		{Time: t0, Direction: model.DirectionIncoming, Frame: []byte{2, 3, 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error(diff)
	}
}

func TestReadAll_garbage(t *testing.T) {
	if _, err := ReadAll(bytes.NewReader([]byte("not a pcap file at all"))); !errors.Is(err, ErrBadCapture) {
		t.Errorf("unexpected error %v", err)
	}
}
