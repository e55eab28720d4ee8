// Package framecodec serializes and validates data link frames.
//
// The wire layout is:
//
//	kind:u8 | ack:u8 | seq:u8 | payload (DATA only) | crc32:u32
//
// where crc32 is the IEEE checksum, big-endian, of every byte before it. A
// received frame that is shorter than [MinFrameSize] or whose checksum does
// not match is corrupt, and none of its fields can be trusted.
package framecodec

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/bytesx"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

const (
	// HeaderSize is the size of the kind, ack and seq fields.
	HeaderSize = 3

	// ChecksumSize is the size of the trailing checksum.
	ChecksumSize = 4

	// MinFrameSize is the size of a frame without payload.
	MinFrameSize = HeaderSize + ChecksumSize
)

var (
	// ErrCorruption indicates that a received frame failed validation.
	ErrCorruption = errors.New("framecodec: corrupt frame")

	// ErrFrameTooShort indicates that a received frame is below [MinFrameSize].
	ErrFrameTooShort = fmt.Errorf("%w: frame too short", ErrCorruption)

	// ErrBadChecksum indicates a checksum mismatch.
	ErrBadChecksum = fmt.Errorf("%w: bad checksum", ErrCorruption)

	// ErrMarshalFrame is the error returned when we cannot serialize a frame.
	ErrMarshalFrame = errors.New("framecodec: cannot marshal frame")
)

// Codec builds, serializes and validates frames for a given sequence space.
// The zero value is invalid; use [New].
type Codec struct {
	space          seqspace.Space
	maxPayloadSize int
}

// New returns a [Codec] accepting payloads up to maxPayloadSize bytes.
func New(space seqspace.Space, maxPayloadSize int) *Codec {
	return &Codec{
		space:          space,
		maxPayloadSize: maxPayloadSize,
	}
}

// Build returns a frame of the given kind. The ack field advertises
// frameExpected as frameExpected-1 on the ring, so the peer can use it both
// as a cumulative acknowledgment and to recover what we expect next. The
// payload is only attached to DATA frames.
func (c *Codec) Build(kind model.FrameKind, seq, frameExpected seqspace.Seq, payload model.Packet) *model.Frame {
	f := &model.Frame{
		Kind: kind,
		Seq:  seq,
		ACK:  c.space.PiggybackACK(frameExpected),
	}
	if kind == model.FrameData {
		f.Payload = payload
	}
	return f
}

// Encode returns the frame ready to be sent on the wire.
func (c *Codec) Encode(f *model.Frame) ([]byte, error) {
	if !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: invalid kind %d", ErrMarshalFrame, f.Kind)
	}
	if len(f.Payload) > c.maxPayloadSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrMarshalFrame, len(f.Payload), c.maxPayloadSize)
	}
	buf := &bytes.Buffer{}
	buf.Grow(MinFrameSize + len(f.Payload))
	buf.WriteByte(byte(f.Kind))
	buf.WriteByte(byte(f.ACK))
	buf.WriteByte(byte(f.Seq))
	if f.Kind == model.FrameData {
		buf.Write(f.Payload)
	}
	bytesx.WriteUint32(buf, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// Decode validates raw bytes received from the channel and parses them. Any
// error returned by this function wraps [ErrCorruption].
func (c *Codec) Decode(raw []byte) (*model.Frame, error) {
	if len(raw) < MinFrameSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrFrameTooShort, len(raw))
	}
	if len(raw) > MinFrameSize+c.maxPayloadSize {
		return nil, fmt.Errorf("%w: frame of %d bytes is too long", ErrCorruption, len(raw))
	}
	body := raw[:len(raw)-ChecksumSize]
	want, err := bytesx.ReadUint32(bytes.NewBuffer(raw[len(body):]))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruption, err)
	}
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrBadChecksum, got, want)
	}

	kind := model.FrameKind(body[0])
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrCorruption, body[0])
	}
	if !c.space.Contains(int(body[1])) || !c.space.Contains(int(body[2])) {
		return nil, fmt.Errorf("%w: sequence number out of range", ErrCorruption)
	}
	f := &model.Frame{
		Kind: kind,
		ACK:  seqspace.Seq(body[1]),
		Seq:  seqspace.Seq(body[2]),
	}
	if kind == model.FrameData {
		f.Payload = bytes.Clone(body[HeaderSize:])
	}
	return f, nil
}
