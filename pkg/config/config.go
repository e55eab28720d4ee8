// Package config contains the configuration of a data link station.
package config

import (
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/runtimex"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

const (
	// DefaultDataTimeout is the retransmission timeout for DATA frames.
	DefaultDataTimeout = 3000 * time.Millisecond

	// DefaultACKTimeout is how long we wait for outgoing traffic to
	// piggyback an ack before sending a separate ACK frame.
	DefaultACKTimeout = 1700 * time.Millisecond

	// DefaultMaxPacketSize is the largest packet the network layer may hand us.
	DefaultMaxPacketSize = 256

	// DefaultBusyThreshold is the number of queued outgoing frames above
	// which the physical layer stops being send-capable.
	DefaultBusyThreshold = 64
)

// Config contains options to initialize a data link station.
type Config struct {
	// logger will be used to log events.
	logger model.Logger

	// tracer observes link events.
	tracer model.Tracer

	// space is the sequence number space.
	space seqspace.Space

	dataTimeout   time.Duration
	ackTimeout    time.Duration
	maxPacketSize int
	busyThreshold int

	// stationID identifies this station in logs and traces.
	stationID string

	// file contains the options parsed from a config file, if any.
	file *FileOptions
}

// NewConfig returns a Config ready to intialize a link.
func NewConfig(options ...Option) *Config {
	cfg := &Config{
		logger:        log.Log,
		tracer:        &model.DummyTracer{},
		space:         seqspace.MustNew(seqspace.DefaultBits),
		dataTimeout:   DefaultDataTimeout,
		ackTimeout:    DefaultACKTimeout,
		maxPacketSize: DefaultMaxPacketSize,
		busyThreshold: DefaultBusyThreshold,
		stationID:     uuid.NewString(),
		file:          &FileOptions{},
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// Option is an option you can pass to initialize a link.
type Option func(config *Config)

// WithLogger configures the passed [Logger].
func WithLogger(logger model.Logger) Option {
	return func(config *Config) {
		config.logger = logger
	}
}

// WithTracer configures the passed [model.Tracer].
func WithTracer(tracer model.Tracer) Option {
	return func(config *Config) {
		config.tracer = tracer
	}
}

// WithSeqBits configures a sequence space with 2^bits sequence numbers.
func WithSeqBits(bits int) Option {
	return func(config *Config) {
		space, err := seqspace.New(bits)
		runtimex.PanicOnError(err, "cannot configure the sequence space")
		config.space = space
	}
}

// WithDataTimeout configures the retransmission timeout.
func WithDataTimeout(d time.Duration) Option {
	return func(config *Config) {
		runtimex.PanicIfFalse(d > 0, "data timeout must be positive")
		config.dataTimeout = d
	}
}

// WithACKTimeout configures the delayed-ack timeout.
func WithACKTimeout(d time.Duration) Option {
	return func(config *Config) {
		runtimex.PanicIfFalse(d > 0, "ack timeout must be positive")
		config.ackTimeout = d
	}
}

// WithMaxPacketSize configures the largest accepted packet.
func WithMaxPacketSize(n int) Option {
	return func(config *Config) {
		runtimex.PanicIfFalse(n > 0, "max packet size must be positive")
		config.maxPacketSize = n
	}
}

// WithBusyThreshold configures the physical queue length above which the
// channel is not send-capable.
func WithBusyThreshold(n int) Option {
	return func(config *Config) {
		runtimex.PanicIfFalse(n > 0, "busy threshold must be positive")
		config.busyThreshold = n
	}
}

// WithStationID configures the station identifier.
func WithStationID(id string) Option {
	return func(config *Config) {
		config.stationID = id
	}
}

// WithConfigFile configures the options parsed from the given file.
func WithConfigFile(configPath string) Option {
	return func(config *Config) {
		opts, err := ReadConfigFile(configPath)
		runtimex.PanicOnError(err, "cannot parse config file")
		config.applyFileOptions(opts)
	}
}

// WithFileOptions configures already parsed file options.
func WithFileOptions(opts *FileOptions) Option {
	return func(config *Config) {
		config.applyFileOptions(opts)
	}
}

func (c *Config) applyFileOptions(opts *FileOptions) {
	c.file = opts
	if opts.SeqBits != 0 {
		c.space = seqspace.MustNew(opts.SeqBits)
	}
	if opts.DataTimeoutMs != 0 {
		c.dataTimeout = time.Duration(opts.DataTimeoutMs) * time.Millisecond
	}
	if opts.ACKTimeoutMs != 0 {
		c.ackTimeout = time.Duration(opts.ACKTimeoutMs) * time.Millisecond
	}
	if opts.MaxPacketSize != 0 {
		c.maxPacketSize = opts.MaxPacketSize
	}
	if opts.BusyThreshold != 0 {
		c.busyThreshold = opts.BusyThreshold
	}
	if opts.Station != "" {
		c.stationID = opts.Station
	}
}

// Logger returns the configured logger.
func (c *Config) Logger() model.Logger {
	return c.logger
}

// Tracer returns the configured tracer.
func (c *Config) Tracer() model.Tracer {
	return c.tracer
}

// Space returns the sequence number space.
func (c *Config) Space() seqspace.Space {
	return c.space
}

// DataTimeout returns the retransmission timeout.
func (c *Config) DataTimeout() time.Duration {
	return c.dataTimeout
}

// ACKTimeout returns the delayed-ack timeout.
func (c *Config) ACKTimeout() time.Duration {
	return c.ackTimeout
}

// MaxPacketSize returns the largest packet accepted from the network layer.
func (c *Config) MaxPacketSize() int {
	return c.maxPacketSize
}

// BusyThreshold returns the physical queue length above which the channel
// is not send-capable.
func (c *Config) BusyThreshold() int {
	return c.busyThreshold
}

// StationID returns the station identifier.
func (c *Config) StationID() string {
	return c.stationID
}

// File returns the options parsed from a config file. Fields not present
// in the file have their zero value.
func (c *Config) File() *FileOptions {
	return c.file
}
