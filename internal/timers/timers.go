// Package timers implements the timer facility used by the link: one
// retransmission timer per outstanding sequence number plus the delayed-ack
// timer, all reported back as events on the link event channel.
package timers

import (
	"sync"
	"time"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// entry is an armed timer.
type entry struct {
	timer      *time.Timer
	generation uint64
}

// Facility implements [model.TimerFacility] on top of [time.AfterFunc].
// The zero value is invalid; use [New].
type Facility struct {
	// events is where expirations are posted.
	events chan<- model.Event

	// shutdown stops pending posts.
	shutdown <-chan any

	// mu guards armed and generation.
	mu sync.Mutex

	// armed maps timer ids to the currently armed timers.
	armed map[model.TimerID]*entry

	// generation increases with every Start.
	generation uint64
}

// New creates a [Facility] posting to events until shutdown is closed.
func New(events chan<- model.Event, shutdown <-chan any) *Facility {
	return &Facility{
		events:   events,
		shutdown: shutdown,
		armed:    make(map[model.TimerID]*entry),
	}
}

var _ model.TimerFacility = &Facility{}

// Start implements model.TimerFacility.
func (f *Facility) Start(id model.TimerID, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, found := f.armed[id]; found {
		old.timer.Stop()
	}
	f.generation++
	generation := f.generation
	f.armed[id] = &entry{
		timer:      time.AfterFunc(d, func() { f.fire(id, generation) }),
		generation: generation,
	}
}

// Stop implements model.TimerFacility.
func (f *Facility) Stop(id model.TimerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, found := f.armed[id]; found {
		old.timer.Stop()
		delete(f.armed, id)
	}
}

// Pending implements model.TimerFacility.
func (f *Facility) Pending(id model.TimerID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, found := f.armed[id]
	return found
}

// Current implements model.TimerFacility.
func (f *Facility) Current(id model.TimerID, generation uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, found := f.armed[id]
	if !found || e.generation != generation {
		return false
	}
	delete(f.armed, id)
	return true
}

// fire runs in the goroutine of the expired timer.
func (f *Facility) fire(id model.TimerID, generation uint64) {
	var ev model.Event
	switch id {
	case model.ACKTimerID:
		ev = model.ACKTimeout{Generation: generation}
	default:
		ev = model.DataTimeout{Seq: seqspace.Seq(id), Generation: generation}
	}
	// POSSIBLY BLOCK until the event loop picks up the expiration
	select {
	case f.events <- ev:
	case <-f.shutdown:
	}
}
