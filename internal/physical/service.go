package physical

import (
	"fmt"
	"sync"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/workers"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

var (
	serviceName = "physical"
)

// FrameRecorder observes the frames crossing the physical layer.
type FrameRecorder interface {
	RecordFrame(direction model.Direction, frame []byte) error
}

// Service is the physical layer service: it implements [model.PhysicalLayer]
// by queueing frames for a worker that writes them to the conn, and turns
// frames read from the conn into [model.FrameArrived] events.
//
// The zero value is invalid; use [NewService]. Make sure you set the optional
// fields before invoking [Service.StartWorkers].
type Service struct {
	// Impairment, if not nil, is applied to outgoing frames.
	Impairment *Impairment

	// Recorder, if not nil, sees every frame read from or written to the conn.
	Recorder FrameRecorder

	// events is where we post events for the link.
	events chan<- model.Event

	// busyThreshold is the queue length at which Transmit reports the
	// channel as busy.
	busyThreshold int

	// mu protects queue and busy.
	mu sync.Mutex

	// queue contains the frames waiting to be written.
	queue [][]byte

	// busy is true after Transmit returned false and until we post
	// a ChannelReady event.
	busy bool

	// wakeup signals the moveDownWorker that the queue is not empty.
	wakeup chan any

	logger model.Logger
}

// NewService creates a new [Service] posting events on the given channel.
func NewService(cfg *config.Config, events chan<- model.Event) *Service {
	return &Service{
		events:        events,
		busyThreshold: cfg.BusyThreshold(),
		queue:         [][]byte{},
		wakeup:        make(chan any, 1),
		logger:        cfg.Logger(),
	}
}

// Transmit implements model.PhysicalLayer.
func (svc *Service) Transmit(frame []byte) bool {
	svc.mu.Lock()
	svc.queue = append(svc.queue, frame)
	ready := len(svc.queue) < svc.busyThreshold
	if !ready {
		svc.busy = true
	}
	svc.mu.Unlock()

	select {
	case svc.wakeup <- true:
	default:
		// the worker has already been notified
	}
	return ready
}

// Ready implements model.PhysicalLayer.
func (svc *Service) Ready() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.queue) < svc.busyThreshold
}

var _ model.PhysicalLayer = &Service{}

// StartWorkers starts the physical layer workers.
//
// This function TAKES OWNERSHIP of the conn.
func (svc *Service) StartWorkers(manager *workers.Manager, conn FramingConn) {
	manager.StartWorker(func() { svc.moveUpWorker(manager, conn) }) // TAKES conn ownership
	manager.StartWorker(func() { svc.moveDownWorker(manager, conn) })
}

// moveUpWorker moves frames up the stack.
func (svc *Service) moveUpWorker(manager *workers.Manager, conn FramingConn) {
	workerName := fmt.Sprintf("%s: moveUpWorker", serviceName)

	defer func() {
		// make sure the manager knows we're done
		manager.OnWorkerDone(workerName)

		// tear down everything else because a worker exited
		manager.StartShutdown()

		// we OWN the connection
		conn.Close()
	}()

	// unblock ReadRawPacket on shutdown
	go func() {
		<-manager.ShouldShutdown()
		conn.Close()
	}()

	svc.logger.Debugf("%s: started", workerName)

	for {
		// POSSIBLY BLOCK on the connection to read a new frame
		frame, err := conn.ReadRawPacket()
		if err != nil {
			svc.logger.Debugf("%s: ReadRawPacket: %s", workerName, err.Error())
			return
		}
		svc.record(model.DirectionIncoming, frame)

		// POSSIBLY BLOCK on the channel to deliver the frame
		select {
		case svc.events <- model.FrameArrived{Raw: frame}:
		case <-manager.ShouldShutdown():
			return
		}
	}
}

// moveDownWorker moves frames down the stack.
func (svc *Service) moveDownWorker(manager *workers.Manager, conn FramingConn) {
	workerName := fmt.Sprintf("%s: moveDownWorker", serviceName)

	defer func() {
		// make sure the manager knows we're done
		manager.OnWorkerDone(workerName)

		// tear down everything else because a worker exited
		manager.StartShutdown()
	}()

	svc.logger.Debugf("%s: started", workerName)

	// the link starts with a busy channel until we tell otherwise
	if !svc.post(manager, model.ChannelReady{}) {
		return
	}

	for {
		// POSSIBLY BLOCK waiting for frames to write.
		select {
		case <-svc.wakeup:
		case <-manager.ShouldShutdown():
			return
		}

		for {
			frame, notify, found := svc.pop()
			if !found {
				break
			}
			if err := svc.write(conn, frame); err != nil {
				svc.logger.Infof("%s: WriteRawPacket: %s", workerName, err.Error())
				return
			}
			if notify && !svc.post(manager, model.ChannelReady{}) {
				return
			}
		}
	}
}

// pop removes the first queued frame. The notify return value is true when
// the queue drained below the busy threshold after we told the link that
// the channel was busy.
func (svc *Service) pop() (frame []byte, notify bool, found bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.queue) <= 0 {
		return nil, false, false
	}
	frame = svc.queue[0]
	svc.queue[0] = nil
	svc.queue = svc.queue[1:]
	if svc.busy && len(svc.queue) < svc.busyThreshold {
		svc.busy = false
		notify = true
	}
	return frame, notify, true
}

// write applies the impairment, if any, and writes the frame.
func (svc *Service) write(conn FramingConn, frame []byte) error {
	if svc.Impairment != nil {
		var verdict ImpairmentVerdict
		frame, verdict = svc.Impairment.Apply(frame)
		switch verdict {
		case FrameLost:
			svc.logger.Debugf("%s: frame lost", serviceName)
			return nil
		case FrameCorrupted:
			svc.logger.Debugf("%s: frame corrupted", serviceName)
		}
	}
	svc.record(model.DirectionOutgoing, frame)

	// POSSIBLY BLOCK on the connection to write the frame
	return conn.WriteRawPacket(frame)
}

// post delivers an event to the link and returns false on shutdown.
func (svc *Service) post(manager *workers.Manager, ev model.Event) bool {
	// POSSIBLY BLOCK on the channel to post the event
	select {
	case svc.events <- ev:
		return true
	case <-manager.ShouldShutdown():
		return false
	}
}

func (svc *Service) record(direction model.Direction, frame []byte) {
	if svc.Recorder == nil {
		return
	}
	if err := svc.Recorder.RecordFrame(direction, frame); err != nil {
		svc.logger.Warnf("%s: cannot record frame: %s", serviceName, err.Error())
	}
}
