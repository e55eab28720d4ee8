package netlayer

import (
	"sync"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/workers"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

// Sink implements [model.Consumer]. Deliver never blocks: packets are queued
// and a worker moves them to the channel returned by Packets. The zero
// value is invalid; use [NewSink].
type Sink struct {
	// mu protects queue.
	mu    sync.Mutex
	queue []model.Packet

	wakeup chan any
	out    chan model.Packet
	logger model.Logger
}

// NewSink creates a new [Sink].
func NewSink(cfg *config.Config) *Sink {
	return &Sink{
		queue:  []model.Packet{},
		wakeup: make(chan any, 1),
		out:    make(chan model.Packet),
		logger: cfg.Logger(),
	}
}

// Deliver implements model.Consumer.
func (snk *Sink) Deliver(p model.Packet) {
	snk.mu.Lock()
	snk.queue = append(snk.queue, p)
	snk.mu.Unlock()
	select {
	case snk.wakeup <- true:
	default:
	}
}

var _ model.Consumer = &Sink{}

// Packets returns the channel where delivered packets appear, in order. The
// channel is closed when the workers shut down.
func (snk *Sink) Packets() <-chan model.Packet {
	return snk.out
}

// StartWorkers starts the worker moving packets up to the application.
func (snk *Sink) StartWorkers(manager *workers.Manager) {
	manager.StartWorker(func() { snk.moveUpWorker(manager) })
}

func (snk *Sink) pop() (model.Packet, bool) {
	snk.mu.Lock()
	defer snk.mu.Unlock()
	if len(snk.queue) <= 0 {
		return nil, false
	}
	p := snk.queue[0]
	snk.queue[0] = nil
	snk.queue = snk.queue[1:]
	return p, true
}

// moveUpWorker moves packets up the stack.
func (snk *Sink) moveUpWorker(manager *workers.Manager) {
	workerName := "netlayer: moveUpWorker"

	defer func() {
		close(snk.out)
		manager.OnWorkerDone(workerName)
		manager.StartShutdown()
	}()

	snk.logger.Debugf("%s: started", workerName)

	for {
		// POSSIBLY BLOCK waiting for packets
		select {
		case <-snk.wakeup:
		case <-manager.ShouldShutdown():
			return
		}
		for {
			p, found := snk.pop()
			if !found {
				break
			}
			// POSSIBLY BLOCK on the application reading the packet
			select {
			case snk.out <- p:
			case <-manager.ShouldShutdown():
				return
			}
		}
	}
}
