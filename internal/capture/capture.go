// Package capture writes the frames crossing the physical layer into a
// pcap file, so that a link session can be inspected offline.
//
// Each record starts with a one-byte pseudo header carrying the direction
// (0 for incoming, 1 for outgoing) followed by the raw frame.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
)

// LinkType is the pcap link type of our captures (LINKTYPE_USER0).
const LinkType = layers.LinkType(147)

// SnapLen is the maximum record size we write.
const SnapLen = 65536

const (
	pseudoIncoming = byte(0)
	pseudoOutgoing = byte(1)
)

// ErrBadCapture indicates a capture we cannot parse.
var ErrBadCapture = errors.New("capture: bad capture")

// Writer records frames. It is safe for concurrent use. The zero value is
// invalid; use [NewWriter].
type Writer struct {
	mu  sync.Mutex
	w   *pcapgo.Writer
	now func() time.Time
}

// NewWriter writes the pcap file header to w and returns a new [Writer].
func NewWriter(w io.Writer, now func() time.Time) (*Writer, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(SnapLen, LinkType); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Writer{w: pw, now: now}, nil
}

// RecordFrame writes a record for the frame.
func (cw *Writer) RecordFrame(direction model.Direction, frame []byte) error {
	var pseudo byte
	switch direction {
	case model.DirectionIncoming:
		pseudo = pseudoIncoming
	case model.DirectionOutgoing:
		pseudo = pseudoOutgoing
	default:
		return fmt.Errorf("capture: wrong direction: %d", direction)
	}
	data := append([]byte{pseudo}, frame...)
	ci := gopacket.CaptureInfo{
		Timestamp:     cw.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.w.WritePacket(ci, data)
}

// Record is a frame read back from a capture.
type Record struct {
	Time      time.Time
	Direction model.Direction
	Frame     []byte
}

// ReadAll parses a capture written by [Writer].
func ReadAll(r io.Reader) ([]Record, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadCapture, err)
	}
	if pr.LinkType() != LinkType {
		return nil, fmt.Errorf("%w: link type %d", ErrBadCapture, pr.LinkType())
	}
	records := []Record{}
	for {
		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadCapture, err)
		}
		if len(data) < 1 {
			return nil, fmt.Errorf("%w: empty record", ErrBadCapture)
		}
		rec := Record{Time: ci.Timestamp, Frame: data[1:]}
		switch data[0] {
		case pseudoIncoming:
			rec.Direction = model.DirectionIncoming
		case pseudoOutgoing:
			rec.Direction = model.DirectionOutgoing
		default:
			return nil, fmt.Errorf("%w: bad direction %d", ErrBadCapture, data[0])
		}
		records = append(records, rec)
	}
}
