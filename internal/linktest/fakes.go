package linktest

import (
	"sync"
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/framecodec"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/optional"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// PhysicalRecorder is a [model.PhysicalLayer] that records every transmitted frame.
type PhysicalRecorder struct {
	codec *framecodec.Codec
	mu    sync.Mutex
	raw   [][]byte
	ready bool
}

// NewPhysicalRecorder returns a recorder whose Transmit reports the channel as ready.
func NewPhysicalRecorder(codec *framecodec.Codec) *PhysicalRecorder {
	return &PhysicalRecorder{codec: codec, ready: true}
}

// SetReady sets the value returned by Ready and by subsequent Transmit calls.
func (pr *PhysicalRecorder) SetReady(ready bool) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.ready = ready
}

// Transmit implements model.PhysicalLayer.
func (pr *PhysicalRecorder) Transmit(frame []byte) bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.raw = append(pr.raw, append([]byte{}, frame...))
	return pr.ready
}

// Ready implements model.PhysicalLayer.
func (pr *PhysicalRecorder) Ready() bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.ready
}

// Raw returns the serialized frames transmitted so far.
func (pr *PhysicalRecorder) Raw() [][]byte {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return append([][]byte{}, pr.raw...)
}

// Frames decodes the frames transmitted so far. It panics if a frame does not decode.
func (pr *PhysicalRecorder) Frames() []*model.Frame {
	frames := []*model.Frame{}
	for _, raw := range pr.Raw() {
		f, err := pr.codec.Decode(raw)
		if err != nil {
			panic(err)
		}
		frames = append(frames, f)
	}
	return frames
}

// Reset forgets the transmitted frames.
func (pr *PhysicalRecorder) Reset() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.raw = nil
}

var _ model.PhysicalLayer = &PhysicalRecorder{}

// ProducerQueue is a [model.Producer] backed by a slice.
type ProducerQueue struct {
	mu     sync.Mutex
	queue  []model.Packet
	intake []bool
	taken  int
}

// NewProducerQueue returns a producer that will hand out the given packets.
func NewProducerQueue(packets ...string) *ProducerQueue {
	pq := &ProducerQueue{}
	for _, p := range packets {
		pq.queue = append(pq.queue, model.Packet(p))
	}
	return pq
}

// TryTakePacket implements model.Producer.
func (pq *ProducerQueue) TryTakePacket() optional.Value[model.Packet] {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if len(pq.queue) <= 0 {
		return optional.None[model.Packet]()
	}
	p := pq.queue[0]
	pq.queue = pq.queue[1:]
	pq.taken++
	return optional.Some(p)
}

// SetIntake implements model.Producer.
func (pq *ProducerQueue) SetIntake(enabled bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.intake = append(pq.intake, enabled)
}

// Intake returns the last value passed to SetIntake.
func (pq *ProducerQueue) Intake() bool {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if len(pq.intake) <= 0 {
		return false
	}
	return pq.intake[len(pq.intake)-1]
}

// IntakeHistory returns every value passed to SetIntake.
func (pq *ProducerQueue) IntakeHistory() []bool {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return append([]bool{}, pq.intake...)
}

// Taken returns how many packets the link took.
func (pq *ProducerQueue) Taken() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.taken
}

// Len returns how many packets are still queued.
func (pq *ProducerQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return len(pq.queue)
}

var _ model.Producer = &ProducerQueue{}

// ConsumerRecorder is a [model.Consumer] recording delivered packets.
type ConsumerRecorder struct {
	mu        sync.Mutex
	delivered []string
}

// Deliver implements model.Consumer.
func (cr *ConsumerRecorder) Deliver(p model.Packet) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.delivered = append(cr.delivered, string(p))
}

// Delivered returns the payloads delivered so far, in order.
func (cr *ConsumerRecorder) Delivered() []string {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return append([]string{}, cr.delivered...)
}

var _ model.Consumer = &ConsumerRecorder{}

// ManualTimers is a [model.TimerFacility] that never fires on its own. Tests
// use Expire to obtain the event a real timer would have posted.
type ManualTimers struct {
	mu         sync.Mutex
	generation uint64
	armed      map[model.TimerID]uint64
	durations  map[model.TimerID]time.Duration
	starts     map[model.TimerID]int
}

// NewManualTimers creates a new [ManualTimers].
func NewManualTimers() *ManualTimers {
	return &ManualTimers{
		armed:     map[model.TimerID]uint64{},
		durations: map[model.TimerID]time.Duration{},
		starts:    map[model.TimerID]int{},
	}
}

// Start implements model.TimerFacility.
func (mt *ManualTimers) Start(id model.TimerID, d time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.generation++
	mt.armed[id] = mt.generation
	mt.durations[id] = d
	mt.starts[id]++
}

// Stop implements model.TimerFacility.
func (mt *ManualTimers) Stop(id model.TimerID) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	delete(mt.armed, id)
}

// Pending implements model.TimerFacility.
func (mt *ManualTimers) Pending(id model.TimerID) bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	_, found := mt.armed[id]
	return found
}

// Current implements model.TimerFacility.
func (mt *ManualTimers) Current(id model.TimerID, generation uint64) bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if g, found := mt.armed[id]; found && g == generation {
		delete(mt.armed, id)
		return true
	}
	return false
}

// Expire returns the expiration event for a pending timer, without disarming
// it. The second return value is false if the timer is not pending.
func (mt *ManualTimers) Expire(id model.TimerID) (model.Event, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	g, found := mt.armed[id]
	if !found {
		return nil, false
	}
	if id == model.ACKTimerID {
		return model.ACKTimeout{Generation: g}, true
	}
	return model.DataTimeout{Seq: seqFromTimerID(id), Generation: g}, true
}

// ExpireOldest is like Expire for the pending timer that was started first,
// which is the one a real facility with equal durations fires next.
func (mt *ManualTimers) ExpireOldest() (model.Event, bool) {
	mt.mu.Lock()
	var (
		oldest model.TimerID
		found  bool
	)
	for id, g := range mt.armed {
		if !found || g < mt.armed[oldest] {
			oldest, found = id, true
		}
	}
	mt.mu.Unlock()
	if !found {
		return nil, false
	}
	return mt.Expire(oldest)
}

// Duration returns the duration of the last Start for id.
func (mt *ManualTimers) Duration(id model.TimerID) time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.durations[id]
}

// Starts returns how many times id has been started.
func (mt *ManualTimers) Starts(id model.TimerID) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.starts[id]
}

var _ model.TimerFacility = &ManualTimers{}

func seqFromTimerID(id model.TimerID) seqspace.Seq {
	return seqspace.Seq(id)
}
