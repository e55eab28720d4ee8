// Package netlayer adapts an application to the link: a [Source] produces
// the packets the link sends, and a [Sink] consumes the packets it delivers.
package netlayer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/optional"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/workers"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

var (
	// ErrPacketTooLarge is returned when a packet exceeds the configured maximum size.
	ErrPacketTooLarge = errors.New("netlayer: packet too large")

	// ErrEmptyPacket is returned when sending an empty packet.
	ErrEmptyPacket = errors.New("netlayer: empty packet")
)

// DefaultSourceCapacity is how many packets a [Source] queues before Send blocks.
const DefaultSourceCapacity = 64

// Source implements [model.Producer]. Applications Send packets, and the
// source tells the link about them with [model.NewPacketReady] events while
// the link intake is enabled. The zero value is invalid; use [NewSource].
type Source struct {
	events        chan<- model.Event
	pending       chan model.Packet
	maxPacketSize int

	// kick wakes up the notifyWorker.
	kick chan any

	// mu protects intake and notified.
	mu sync.Mutex

	// intake is the last value passed to SetIntake.
	intake bool

	// notified is true while a NewPacketReady event is outstanding.
	notified bool

	logger model.Logger
}

// NewSource creates a new [Source] posting events on the given channel.
func NewSource(cfg *config.Config, events chan<- model.Event) *Source {
	return &Source{
		events:        events,
		pending:       make(chan model.Packet, DefaultSourceCapacity),
		maxPacketSize: cfg.MaxPacketSize(),
		kick:          make(chan any, 1),
		logger:        cfg.Logger(),
	}
}

// Send queues a packet for the link. It blocks when the queue is full.
func (src *Source) Send(ctx context.Context, p model.Packet) error {
	if len(p) <= 0 {
		return ErrEmptyPacket
	}
	if len(p) > src.maxPacketSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrPacketTooLarge, len(p), src.maxPacketSize)
	}
	// POSSIBLY BLOCK until there is room in the queue
	select {
	case src.pending <- p:
		src.wake()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryTakePacket implements model.Producer.
func (src *Source) TryTakePacket() optional.Value[model.Packet] {
	src.mu.Lock()
	src.notified = false
	src.mu.Unlock()
	defer src.wake()

	select {
	case p := <-src.pending:
		return optional.Some(p)
	default:
		return optional.None[model.Packet]()
	}
}

// SetIntake implements model.Producer.
func (src *Source) SetIntake(enabled bool) {
	src.mu.Lock()
	if enabled && !src.intake {
		// the link drops a notification that arrives while the gate is closed
		src.notified = false
	}
	src.intake = enabled
	src.mu.Unlock()
	if enabled {
		src.wake()
	}
}

var _ model.Producer = &Source{}

// StartWorkers starts the worker posting notifications.
func (src *Source) StartWorkers(manager *workers.Manager) {
	manager.StartWorker(func() { src.notifyWorker(manager) })
}

func (src *Source) wake() {
	select {
	case src.kick <- true:
	default:
	}
}

// shouldNotify returns whether we need to post a notification, and marks it
// as outstanding.
func (src *Source) shouldNotify() bool {
	src.mu.Lock()
	defer src.mu.Unlock()
	if !src.intake || src.notified || len(src.pending) <= 0 {
		return false
	}
	src.notified = true
	return true
}

// notifyWorker posts NewPacketReady events.
func (src *Source) notifyWorker(manager *workers.Manager) {
	workerName := "netlayer: notifyWorker"

	defer func() {
		manager.OnWorkerDone(workerName)
		manager.StartShutdown()
	}()

	src.logger.Debugf("%s: started", workerName)

	for {
		// POSSIBLY BLOCK until something changes
		select {
		case <-src.kick:
		case <-manager.ShouldShutdown():
			return
		}
		if !src.shouldNotify() {
			continue
		}
		// POSSIBLY BLOCK on the channel to post the event
		select {
		case src.events <- model.NewPacketReady{}:
		case <-manager.ShouldShutdown():
			return
		}
	}
}
