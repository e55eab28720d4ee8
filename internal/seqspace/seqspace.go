// Package seqspace implements modular arithmetic over the circular sequence
// number space used by the sliding-window protocol.
//
// A [Space] with n bits has MaxSeq = 2^n - 1 and a window size of
// (MaxSeq+1)/2 slots. Sender and receiver windows never span more than half
// of the ring, otherwise an old frame and a new frame carrying the same
// sequence number would be indistinguishable.
package seqspace

import (
	"errors"
	"fmt"
)

// Seq is a sequence number in [0, MaxSeq].
type Seq uint8

// MinBits and MaxBits bound the size of a sequence space. A sequence number
// travels in a single byte on the wire.
const (
	MinBits = 2
	MaxBits = 8

	// DefaultBits gives MaxSeq = 15.
	DefaultBits = 4
)

// ErrBadSpace indicates an invalid number of sequence bits.
var ErrBadSpace = errors.New("seqspace: invalid number of bits")

// Space is a circular sequence number space. The zero value is invalid;
// use [New] or [MustNew].
type Space struct {
	modulus int
}

// New returns the [Space] with 2^bits sequence numbers.
func New(bits int) (Space, error) {
	if bits < MinBits || bits > MaxBits {
		return Space{}, fmt.Errorf("%w: got %d, want [%d, %d]", ErrBadSpace, bits, MinBits, MaxBits)
	}
	return Space{modulus: 1 << bits}, nil
}

// MustNew is like [New] but panics on error.
func MustNew(bits int) Space {
	s, err := New(bits)
	if err != nil {
		panic(err)
	}
	return s
}

// MaxSeq returns the largest sequence number.
func (s Space) MaxSeq() Seq {
	return Seq(s.modulus - 1)
}

// NrBufs returns the window size, (MaxSeq+1)/2.
func (s Space) NrBufs() int {
	return s.modulus / 2
}

// Contains returns whether k is a valid sequence number in this space.
func (s Space) Contains(k int) bool {
	return k >= 0 && k < s.modulus
}

// Inc returns (k+1) mod (MaxSeq+1).
func (s Space) Inc(k Seq) Seq {
	return s.Add(k, 1)
}

// Add returns (k+n) mod (MaxSeq+1). A negative n walks backwards.
func (s Space) Add(k Seq, n int) Seq {
	v := (int(k) + n) % s.modulus
	if v < 0 {
		v += s.modulus
	}
	return Seq(v)
}

// Distance returns the clockwise distance from a to b.
func (s Space) Distance(a, b Seq) int {
	return (int(b) - int(a) + s.modulus) % s.modulus
}

// Slot returns the buffer index for k, that is k mod NrBufs.
func (s Space) Slot(k Seq) int {
	return int(k) % s.NrBufs()
}

// Between returns true iff b lies in the circular half-open interval [a, c).
func (s Space) Between(a, b, c Seq) bool {
	return (a <= b && b < c) || (c < a && a <= b) || (b < c && c < a)
}

// PiggybackACK returns the ack field advertising frameExpected, that is
// frameExpected-1 on the ring. The peer recovers frameExpected as ack+1.
func (s Space) PiggybackACK(frameExpected Seq) Seq {
	return s.Add(frameExpected, int(s.MaxSeq()))
}
