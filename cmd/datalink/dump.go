package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/capture"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/framecodec"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

// dumpMain prints the frames stored in a capture file.
func dumpMain(logger *log.Logger, args []string) error {
	set := getopt.New()
	set.SetParameters("FILE")
	optBits := set.IntLong("bits", 'b', seqspace.DefaultBits, "Sequence number bits of the capture")
	optMaxSize := set.IntLong("max-packet-size", 0, config.DefaultMaxPacketSize, "Largest payload of the capture")
	if err := set.Getopt(args, nil); err != nil {
		set.PrintUsage(os.Stderr)
		return err
	}
	if set.NArgs() != 1 {
		set.PrintUsage(os.Stderr)
		return fmt.Errorf("dump: expected one capture file")
	}
	space, err := seqspace.New(*optBits)
	if err != nil {
		return err
	}
	codec := framecodec.New(space, *optMaxSize)

	fp, err := os.Open(set.Arg(0))
	if err != nil {
		return err
	}
	defer fp.Close()
	records, err := capture.ReadAll(fp)
	if err != nil {
		return err
	}
	logger.Debugf("dump: %d records", len(records))

	var t0 = startTime
	if len(records) > 0 {
		t0 = records[0].Time
	}
	for _, rec := range records {
		elapsed := rec.Time.Sub(t0).Seconds()
		frame, err := codec.Decode(rec.Frame)
		if err != nil {
			fmt.Printf("[%10.6f] %s %d bytes: %s\n", elapsed, rec.Direction, len(rec.Frame), err.Error())
			continue
		}
		fmt.Printf("[%10.6f] %s %s seq=%d ack=%d len=%d\n",
			elapsed, rec.Direction, frame.Kind, frame.Seq, frame.ACK, len(frame.Payload))
	}
	return nil
}
