// Package linktest provides utilities for data link testing.
package linktest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/framecodec"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// TestFrame is used to simulate incoming frames over the channel. The goal is to be able to
// have a compact representation of a sequence of frames, their kind, and extra properties like
// inter-arrival time.
type TestFrame struct {
	// Kind is the frame kind.
	Kind model.FrameKind

	// Seq is the sequence number. Zero for ACK and NAK.
	Seq int

	// ACK is the piggyback ack.
	ACK int

	// Payload is the payload of a DATA frame.
	Payload string

	// IAT is the inter-arrival time until the next frame is received.
	IAT time.Duration
}

var errBadFrame = errors.New("linktest: bad test frame")

// NewTestFrameFromString parses a test frame. The string is in the form:
//
//	"DATA 3 ack:7 payload:hello +42ms"
//	"NAK ack:1"
//
// where the payload and the inter-arrival time are optional.
func NewTestFrameFromString(s string) (*TestFrame, error) {
	tf := &TestFrame{}
	parts := strings.Split(s, " +")
	if len(parts) == 2 {
		iat, err := time.ParseDuration(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse duration: %s", errBadFrame, err)
		}
		tf.IAT = iat
	}

	head := strings.Fields(parts[0])
	if len(head) < 2 {
		return nil, fmt.Errorf("%w: %q", errBadFrame, s)
	}
	kind, err := model.NewFrameKindFromString(head[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errBadFrame, err)
	}
	tf.Kind = kind
	head = head[1:]

	if kind == model.FrameData {
		seq, err := strconv.Atoi(head[0])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse seq: %s", errBadFrame, err)
		}
		tf.Seq = seq
		head = head[1:]
	}

	for _, field := range head {
		key, value, found := strings.Cut(field, ":")
		if !found {
			return nil, fmt.Errorf("%w: bad field %q", errBadFrame, field)
		}
		switch key {
		case "ack":
			ack, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to parse ack: %s", errBadFrame, err)
			}
			tf.ACK = ack
		case "payload":
			tf.Payload = value
		default:
			return nil, fmt.Errorf("%w: unknown field %q", errBadFrame, key)
		}
	}
	return tf, nil
}

// Frame returns the [model.Frame] for this test frame.
func (tf *TestFrame) Frame() *model.Frame {
	f := &model.Frame{
		Kind: tf.Kind,
		Seq:  seqspace.Seq(tf.Seq),
		ACK:  seqspace.Seq(tf.ACK),
	}
	if tf.Kind == model.FrameData {
		f.Payload = model.Packet(tf.Payload)
	}
	return f
}

// MustEncode parses the test frame and returns its serialization. It panics on error.
func MustEncode(codec *framecodec.Codec, s string) []byte {
	tf, err := NewTestFrameFromString(s)
	if err != nil {
		panic(err)
	}
	raw, err := codec.Encode(tf.Frame())
	if err != nil {
		panic(err)
	}
	return raw
}

// MaybeExpand expands a sequence written in range notation for the sequence
// numbers: "[0..2] DATA ack:7" becomes "DATA 0 ack:7", "DATA 1 ack:7", "DATA 2 ack:7".
func MaybeExpand(input string) []string {
	pattern := regexp.MustCompile(`^\[(\d+)\.\.(\d+)\] (\w+)(.*)$`)
	matches := pattern.FindStringSubmatch(input)
	if len(matches) != 5 {
		// not a range, return the single element
		return []string{input}
	}
	from, err := strconv.Atoi(matches[1])
	if err != nil {
		panic(err)
	}
	to, err := strconv.Atoi(matches[2])
	if err != nil {
		panic(err)
	}
	items := []string{}
	for i := from; i <= to; i++ {
		items = append(items, fmt.Sprintf("%s %d%s", matches[3], i, matches[4]))
	}
	return items
}

// FrameArrivals converts a sequence of test frames into [model.FrameArrived] events.
func FrameArrivals(codec *framecodec.Codec, seq ...string) []model.Event {
	events := []model.Event{}
	for _, expr := range seq {
		for _, item := range MaybeExpand(expr) {
			events = append(events, model.FrameArrived{Raw: MustEncode(codec, item)})
		}
	}
	return events
}
