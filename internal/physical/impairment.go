package physical

import (
	"math/rand"
	"sync"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/bytesx"
)

// Impairment simulates a noisy channel on outgoing frames: each frame is
// dropped with probability Loss, otherwise one of its bits is flipped with
// probability Corrupt. The zero value is a perfect channel.
type Impairment struct {
	Loss    float64
	Corrupt float64

	// Rand is the source of randomness. When nil, a time-seeded one is used.
	Rand *rand.Rand

	once sync.Once
}

// ImpairmentVerdict says what happened to a frame.
type ImpairmentVerdict int

const (
	// FrameIntact means the frame was not touched.
	FrameIntact = ImpairmentVerdict(iota)

	// FrameLost means the frame was dropped.
	FrameLost

	// FrameCorrupted means one bit of the frame was flipped.
	FrameCorrupted
)

// Apply returns the frame as it should reach the peer. The returned slice
// is nil when the frame is lost. Apply is not safe for concurrent use.
func (im *Impairment) Apply(frame []byte) ([]byte, ImpairmentVerdict) {
	im.once.Do(func() {
		if im.Rand == nil {
			im.Rand = rand.New(rand.NewSource(rand.Int63()))
		}
	})
	if im.Loss > 0 && im.Rand.Float64() < im.Loss {
		return nil, FrameLost
	}
	if im.Corrupt > 0 && len(frame) > 0 && im.Rand.Float64() < im.Corrupt {
		return bytesx.FlipBit(frame, im.Rand.Intn(len(frame)*8)), FrameCorrupted
	}
	return frame, FrameIntact
}
