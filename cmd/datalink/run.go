package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/capture"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/metrics"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/physical"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/station"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/tracex"
)

// runMain runs a station talking to a peer over the network. Each line read
// from stdin is a packet; each packet received from the peer is written to
// stdout on its own line.
func runMain(logger *log.Logger, args []string) error {
	set := getopt.New()
	optConfig := set.StringLong("config", 'c', "", "Configuration file (yaml or toml)")
	optTransport := set.StringLong("transport", 'p', "", "Transport: udp, tcp or ws")
	optListen := set.StringLong("listen", 'l', "", "Local address")
	optPeer := set.StringLong("peer", 'r', "", "Peer address")
	optStation := set.StringLong("station", 's', "", "Station identifier")
	optBits := set.IntLong("bits", 'b', 0, "Sequence number bits")
	optCapture := set.StringLong("capture", 'w', "", "Write every frame to this pcap file")
	optMetrics := set.StringLong("metrics", 'm', "", "Serve prometheus metrics on this address")
	optTrace := set.StringLong("trace", 'T', "", "Write the trace to this JSON file on exit")
	var loss, corrupt float64
	set.FlagLong(&loss, "loss", 0, "Probability of losing an outgoing frame")
	set.FlagLong(&corrupt, "corrupt", 0, "Probability of corrupting an outgoing frame")
	if err := set.Getopt(args, nil); err != nil {
		set.PrintUsage(os.Stderr)
		return err
	}

	fo := &config.FileOptions{}
	if *optConfig != "" {
		var err error
		if fo, err = config.ReadConfigFile(*optConfig); err != nil {
			return err
		}
		logger.Debugf("config file: %s", *optConfig)
	}
	overrideString(&fo.Transport, *optTransport)
	overrideString(&fo.Listen, *optListen)
	overrideString(&fo.Peer, *optPeer)
	overrideString(&fo.Station, *optStation)
	overrideString(&fo.Capture, *optCapture)
	overrideString(&fo.Metrics, *optMetrics)
	if *optBits != 0 {
		fo.SeqBits = *optBits
	}
	if loss != 0 {
		fo.Loss = loss
	}
	if corrupt != 0 {
		fo.Corrupt = corrupt
	}
	if fo.Transport == "" {
		fo.Transport = "udp"
	}
	if err := fo.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tracer := tracex.NewTracerWithStation(startTime, fo.Station)
	tracers := tracex.Tee{tracer}
	if fo.Metrics != "" {
		m := metrics.New(fo.Station)
		tracers = append(tracers, m)
		go func() {
			if err := m.Serve(ctx, logger, fo.Metrics); err != nil {
				logger.WithError(err).Warn("metrics")
			}
		}()
	}

	cfg := config.NewConfig(
		config.WithLogger(logger),
		config.WithFileOptions(fo),
		config.WithTracer(tracers),
	)

	stOpts := &station.Options{}
	if fo.Loss > 0 || fo.Corrupt > 0 {
		stOpts.Impairment = &physical.Impairment{Loss: fo.Loss, Corrupt: fo.Corrupt}
	}
	if fo.Capture != "" {
		fp, err := os.Create(fo.Capture)
		if err != nil {
			return err
		}
		defer fp.Close()
		w, err := capture.NewWriter(fp, nil)
		if err != nil {
			return err
		}
		stOpts.Recorder = w
	}

	ep := physical.Endpoint{Transport: fo.Transport, Listen: fo.Listen, Peer: fo.Peer}
	conn, err := physical.NewDialer(logger).Connect(ctx, ep)
	if err != nil {
		return err
	}
	st := station.Start(cfg, conn, stOpts)
	logger.Infof("station %s: %s link %s <-> %s", st.ID(), ep.Transport, conn.LocalAddr(), conn.RemoteAddr())

	go readPackets(ctx, logger, st, cfg.MaxPacketSize())

	err = writePackets(ctx, st)
	st.Close()

	if *optTrace != "" {
		if err := writeTrace(tracer, *optTrace); err != nil {
			return err
		}
	}
	stats := tracer.Stats()
	logger.Infof("station %s: delivered=%d data_sent=%d nak_sent=%d corrupt=%d",
		st.ID(), stats.Delivered, stats.DataSent, stats.NAKSent, stats.Corrupt)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// readPackets sends each line of stdin to the peer.
func readPackets(ctx context.Context, logger model.Logger, st *station.Station, maxSize int) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if len(line) > maxSize {
			logger.Warnf("run: dropping line of %d bytes", len(line))
			continue
		}
		p := append(model.Packet{}, line...)
		if err := st.Send(ctx, p); err != nil {
			logger.Warnf("run: send: %s", err.Error())
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warnf("run: stdin: %s", err.Error())
	}
}

// writePackets writes the received packets to stdout until the context is
// done or the station shuts down.
func writePackets(ctx context.Context, st *station.Station) error {
	for {
		select {
		case p, ok := <-st.Packets():
			if !ok {
				return station.ErrClosed
			}
			fmt.Println(string(p))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func writeTrace(tracer *tracex.Tracer, path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	return tracer.WriteJSON(fp)
}
