// Package sim runs two stations against each other over an impaired
// in-memory channel and checks that every packet arrives in order.
package sim

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/physical"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/station"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/tracex"
)

// ErrOutOfOrder means a station received a packet other than the next one.
var ErrOutOfOrder = errors.New("sim: packet out of order")

// Scenario describes a simulation.
type Scenario struct {
	// Packets is how many packets each station sends.
	Packets int

	// PacketSize is the size of each packet. It must be at least 8 bytes.
	PacketSize int

	// Loss and Corrupt are the impairment probabilities of each direction.
	Loss    float64
	Corrupt float64

	// Seed seeds the impairments, for reproducible runs.
	Seed int64

	// Options configures both stations. The logger, tracer and station id are
	// set by the simulation.
	Options []config.Option

	// Logger is the logger for both stations.
	Logger model.Logger

	// Recorder, if not nil, records the frames of station A.
	Recorder physical.FrameRecorder

	// Tracers, if not nil, receives extra tracers for station A and B.
	Tracers [2]model.Tracer
}

// Report is the result of a simulation.
type Report struct {
	Elapsed time.Duration     `json:"elapsed"`
	Stats   [2]tracex.Stats   `json:"stats"`
	Trace   [2]*tracex.Tracer `json:"-"`
}

var stationNames = [2]string{"A", "B"}

// Run runs the scenario until both stations received every packet or the
// context is done.
func Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if sc.PacketSize < 8 {
		return nil, fmt.Errorf("sim: packet size %d is below 8 bytes", sc.PacketSize)
	}
	start := time.Now()
	report := &Report{}
	ends := [2]physical.FramingConn{}
	ends[0], ends[1] = physical.Pipe(256)
	stations := [2]*station.Station{}

	for i := range stations {
		report.Trace[i] = tracex.NewTracerWithStation(start, stationNames[i])
		var tracer model.Tracer = report.Trace[i]
		if sc.Tracers[i] != nil {
			tracer = tracex.Tee{report.Trace[i], sc.Tracers[i]}
		}
		opts := append([]config.Option{}, sc.Options...)
		opts = append(opts,
			config.WithLogger(sc.Logger),
			config.WithTracer(tracer),
			config.WithStationID(stationNames[i]),
		)
		stOpts := &station.Options{
			Impairment: &physical.Impairment{
				Loss:    sc.Loss,
				Corrupt: sc.Corrupt,
				Rand:    rand.New(rand.NewSource(sc.Seed + int64(i))),
			},
		}
		if i == 0 {
			stOpts.Recorder = sc.Recorder
		}
		stations[i] = station.Start(config.NewConfig(opts...), ends[i], stOpts)
	}
	defer func() {
		for _, st := range stations {
			st.Close()
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	for i := range stations {
		st, peer := stations[i], stations[1-i]
		g.Go(func() error {
			return send(ctx, st, sc)
		})
		g.Go(func() error {
			return receive(ctx, peer, sc)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(start)
	for i := range stations {
		report.Stats[i] = report.Trace[i].Stats()
	}
	return report, nil
}

// packet returns the i-th packet: a big endian counter padded with a
// recognizable pattern.
func packet(i, size int) model.Packet {
	p := bytes.Repeat([]byte{byte(i)}, size)
	binary.BigEndian.PutUint64(p, uint64(i))
	return p
}

func send(ctx context.Context, st *station.Station, sc *Scenario) error {
	for i := 0; i < sc.Packets; i++ {
		if err := st.Send(ctx, packet(i, sc.PacketSize)); err != nil {
			return fmt.Errorf("station %s: %w", st.ID(), err)
		}
	}
	return nil
}

func receive(ctx context.Context, st *station.Station, sc *Scenario) error {
	for i := 0; i < sc.Packets; i++ {
		select {
		case p, ok := <-st.Packets():
			if !ok {
				return fmt.Errorf("station %s: %w", st.ID(), station.ErrClosed)
			}
			if want := packet(i, sc.PacketSize); !bytes.Equal(p, want) {
				return fmt.Errorf("%w: station %s expected packet %d", ErrOutOfOrder, st.ID(), i)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
