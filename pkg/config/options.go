package config

//
// Parsing of station config files.
//

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/seqspace"
)

// ErrBadConfig is the generic error returned for invalid config files.
var ErrBadConfig = errors.New("config: bad config")

// FileOptions are the options that can be set from a YAML or TOML file.
type FileOptions struct {
	// SeqBits is the number of bits of a sequence number.
	SeqBits int `yaml:"seq_bits" toml:"seq_bits"`

	// DataTimeoutMs is the retransmission timeout in milliseconds.
	DataTimeoutMs int `yaml:"data_timeout_ms" toml:"data_timeout_ms"`

	// ACKTimeoutMs is the delayed-ack timeout in milliseconds.
	ACKTimeoutMs int `yaml:"ack_timeout_ms" toml:"ack_timeout_ms"`

	MaxPacketSize int `yaml:"max_packet_size" toml:"max_packet_size"`
	BusyThreshold int `yaml:"busy_threshold" toml:"busy_threshold"`

	// Station is the station identifier used in logs.
	Station string `yaml:"station" toml:"station"`

	// Transport is one of "udp", "tcp" or "ws".
	Transport string `yaml:"transport" toml:"transport"`

	// Listen is the local address.
	Listen string `yaml:"listen" toml:"listen"`

	// Peer is the remote address.
	Peer string `yaml:"peer" toml:"peer"`

	// Metrics is the address where we serve prometheus metrics.
	Metrics string `yaml:"metrics" toml:"metrics"`

	// Capture is the path of a pcap file receiving every frame.
	Capture string `yaml:"capture" toml:"capture"`

	// Loss is the probability of dropping an outgoing frame.
	Loss float64 `yaml:"loss" toml:"loss"`

	// Corrupt is the probability of flipping one bit of an outgoing frame.
	Corrupt float64 `yaml:"corrupt" toml:"corrupt"`
}

// ReadConfigFile parses the given file according to its extension.
func ReadConfigFile(path string) (*FileOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opts := &FileOptions{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadConfig, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), opts); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown extension %q", ErrBadConfig, ext)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks the ranges of the parsed options. Zero values mean
// "use the default" and are always valid.
func (o *FileOptions) Validate() error {
	if o.SeqBits != 0 && (o.SeqBits < seqspace.MinBits || o.SeqBits > seqspace.MaxBits) {
		return fmt.Errorf("%w: seq_bits must be in [%d, %d]", ErrBadConfig, seqspace.MinBits, seqspace.MaxBits)
	}
	if o.DataTimeoutMs < 0 || o.ACKTimeoutMs < 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrBadConfig)
	}
	if o.MaxPacketSize < 0 || o.BusyThreshold < 0 {
		return fmt.Errorf("%w: sizes must be positive", ErrBadConfig)
	}
	switch o.Transport {
	case "", "udp", "tcp", "ws":
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrBadConfig, o.Transport)
	}
	if o.Loss < 0 || o.Loss > 1 || o.Corrupt < 0 || o.Corrupt > 1 {
		return fmt.Errorf("%w: probabilities must be in [0, 1]", ErrBadConfig)
	}
	return nil
}
