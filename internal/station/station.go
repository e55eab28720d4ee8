// Package station assembles a complete data link station: the physical
// layer service, the timers, the network layer adapters and the link event
// loop, all running as workers of a single manager.
package station

import (
	"context"
	"errors"
	"sync"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/datalink"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/netlayer"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/physical"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/timers"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/workers"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

// ErrClosed is returned when using a closed [Station].
var ErrClosed = errors.New("station: closed")

// eventsBufferSize is the capacity of the link events channel.
const eventsBufferSize = 128

// Options contains optional settings for [Start].
type Options struct {
	// Impairment, if not nil, simulates a noisy channel on outgoing frames.
	Impairment *physical.Impairment

	// Recorder, if not nil, sees every frame crossing the physical layer.
	Recorder physical.FrameRecorder
}

// Station is a running data link station.
type Station struct {
	id        string
	manager   *workers.Manager
	source    *netlayer.Source
	sink      *netlayer.Sink
	logger    model.Logger
	closeOnce sync.Once
}

// Start starts all the workers of a station talking over conn.
//
// This function TAKES OWNERSHIP of the conn.
func Start(cfg *config.Config, conn physical.FramingConn, opts *Options) *Station {
	if opts == nil {
		opts = &Options{}
	}
	manager := workers.NewManager(cfg.Logger())
	events := make(chan model.Event, eventsBufferSize)

	phy := physical.NewService(cfg, events)
	phy.Impairment = opts.Impairment
	phy.Recorder = opts.Recorder

	st := &Station{
		id:      cfg.StationID(),
		manager: manager,
		source:  netlayer.NewSource(cfg, events),
		sink:    netlayer.NewSink(cfg),
		logger:  cfg.Logger(),
	}

	lnk := datalink.NewLink(cfg, events, datalink.Collaborators{
		Physical: phy,
		Producer: st.source,
		Consumer: st.sink,
		Timers:   timers.New(events, manager.ShouldShutdown()),
	})

	manager.StartWorker(func() { st.linkWorker(lnk) })
	phy.StartWorkers(manager, conn) // TAKES conn ownership
	st.source.StartWorkers(manager)
	st.sink.StartWorkers(manager)

	st.logger.Infof("station %s: started", st.id)
	return st
}

// linkWorker runs the link event loop.
func (st *Station) linkWorker(lnk *datalink.Link) {
	workerName := "station: linkWorker"

	defer func() {
		st.manager.OnWorkerDone(workerName)
		st.manager.StartShutdown()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-st.manager.ShouldShutdown():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := lnk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		st.logger.Warnf("%s: %s", workerName, err.Error())
	}
}

// ID returns the station identifier.
func (st *Station) ID() string {
	return st.id
}

// Send queues a packet for transmission to the peer.
func (st *Station) Send(ctx context.Context, p model.Packet) error {
	if st.closed() {
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-st.manager.ShouldShutdown():
			cancel()
		case <-ctx.Done():
		}
	}()
	err := st.source.Send(ctx, p)
	if err != nil && st.closed() {
		return ErrClosed
	}
	return err
}

// Packets returns the channel where the packets sent by the peer appear, in
// order. The channel is closed when the station shuts down.
func (st *Station) Packets() <-chan model.Packet {
	return st.sink.Packets()
}

// Done returns a channel closed when the station is shutting down.
func (st *Station) Done() <-chan any {
	return st.manager.ShouldShutdown()
}

func (st *Station) closed() bool {
	select {
	case <-st.manager.ShouldShutdown():
		return true
	default:
		return false
	}
}

// Close stops all the workers and waits for them to terminate.
func (st *Station) Close() error {
	st.closeOnce.Do(func() {
		st.manager.StartShutdown()
		st.manager.WaitWorkersShutdown()
		st.logger.Infof("station %s: closed", st.id)
	})
	return nil
}
