package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/capture"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/metrics"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/sim"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

// simMain runs two stations over an impaired in-memory channel and prints
// the report as JSON.
func simMain(logger *log.Logger, args []string) error {
	set := getopt.New()
	optPackets := set.IntLong("packets", 'n', 100, "Packets sent by each station")
	optSize := set.IntLong("size", 's', 64, "Size of each packet")
	var loss, corrupt float64
	set.FlagLong(&loss, "loss", 'l', "Probability of losing a frame")
	set.FlagLong(&corrupt, "corrupt", 'x', "Probability of corrupting a frame")
	optSeed := set.Int64Long("seed", 0, time.Now().UnixNano(), "Seed of the impairments")
	optBits := set.IntLong("bits", 'b', 0, "Sequence number bits")
	optDataTimeout := set.DurationLong("data-timeout", 0, 0, "Retransmission timeout")
	optACKTimeout := set.DurationLong("ack-timeout", 0, 0, "Delayed ack timeout")
	optTimeout := set.DurationLong("timeout", 't', time.Minute, "Give up after this long")
	optCapture := set.StringLong("capture", 'w', "", "Write the frames of station A to this pcap file")
	optTrace := set.StringLong("trace", 'T', "", "Write the trace of station A to this JSON file")
	optMetrics := set.StringLong("metrics", 'm', "", "Serve prometheus metrics of station A on this address")
	if err := set.Getopt(args, nil); err != nil {
		set.PrintUsage(os.Stderr)
		return err
	}

	opts := []config.Option{}
	if *optBits != 0 {
		opts = append(opts, config.WithSeqBits(*optBits))
	}
	if *optDataTimeout != 0 {
		opts = append(opts, config.WithDataTimeout(*optDataTimeout))
	}
	if *optACKTimeout != 0 {
		opts = append(opts, config.WithACKTimeout(*optACKTimeout))
	}
	if *optSize > config.DefaultMaxPacketSize {
		opts = append(opts, config.WithMaxPacketSize(*optSize))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *optTimeout)
	defer cancel()

	sc := &sim.Scenario{
		Packets:    *optPackets,
		PacketSize: *optSize,
		Loss:       loss,
		Corrupt:    corrupt,
		Seed:       *optSeed,
		Options:    opts,
		Logger:     logger,
	}

	if *optCapture != "" {
		fp, err := os.Create(*optCapture)
		if err != nil {
			return err
		}
		defer fp.Close()
		w, err := capture.NewWriter(fp, nil)
		if err != nil {
			return err
		}
		sc.Recorder = w
	}

	if *optMetrics != "" {
		m := metrics.New("A")
		sc.Tracers[0] = m
		go func() {
			if err := m.Serve(ctx, logger, *optMetrics); err != nil {
				logger.WithError(err).Warn("metrics")
			}
		}()
	}

	logger.Infof("sim: %d packets of %d bytes, loss=%.3f corrupt=%.3f seed=%d",
		sc.Packets, sc.PacketSize, sc.Loss, sc.Corrupt, sc.Seed)
	report, err := sim.Run(ctx, sc)
	if err != nil {
		return err
	}

	if *optTrace != "" {
		fp, err := os.Create(*optTrace)
		if err != nil {
			return err
		}
		defer fp.Close()
		if err := report.Trace[0].WriteJSON(fp); err != nil {
			return err
		}
		logger.Infof("sim: trace written to %s", *optTrace)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
