// Package config loads the rtcbridge command configuration from the
// environment. Every variable is prefixed with RTCBRIDGE_, e.g.
// RTCBRIDGE_LOG_LEVEL=debug.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "RTCBRIDGE"

// Transport selects the data channel implementation.
type Transport string

const (
	// TransportPipe uses an in-memory channel pair.
	TransportPipe Transport = "pipe"
	// TransportPion negotiates a real WebRTC data channel over loopback.
	TransportPion Transport = "pion"
)

// Decode implements envconfig.Decoder.
func (x *Transport) Decode(value string) error {
	switch t := Transport(strings.ToLower(value)); t {
	case TransportPipe, TransportPion:
		*x = t
		return nil
	default:
		return fmt.Errorf("unknown transport %q", value)
	}
}

// LogLevel is a logiface.Level, decoded from its name.
type LogLevel logiface.Level

// Decode implements envconfig.Decoder.
func (x *LogLevel) Decode(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	*x = LogLevel(level)
	return nil
}

// Level returns the logiface.Level.
func (x LogLevel) Level() logiface.Level {
	return logiface.Level(x)
}

// Config holds all command configuration.
type Config struct {
	Logging LogConfig
	Bridge  BridgeConfig
	Channel ChannelConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level LogLevel `envconfig:"LOG_LEVEL" default:"info"`
}

// BridgeConfig holds bridge and managed runtime configuration.
type BridgeConfig struct {
	GlobalName      string        `envconfig:"GLOBAL_NAME" default:"RNWebRTC"`
	MaxPayloadBytes int           `envconfig:"MAX_PAYLOAD_BYTES" default:"0"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"1s"`
	MaxThreads      int           `envconfig:"MAX_THREADS" default:"0"`
}

// ChannelConfig holds data channel configuration.
type ChannelConfig struct {
	Transport   Transport     `envconfig:"TRANSPORT" default:"pipe"`
	Tag         string        `envconfig:"TAG" default:"chat"`
	RawDelivery bool          `envconfig:"RAW_DELIVERY" default:"false"`
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level: LogLevel(logiface.LevelInformational),
		},
		Bridge: BridgeConfig{
			GlobalName:    "RNWebRTC",
			SweepInterval: time.Second,
		},
		Channel: ChannelConfig{
			Transport:   TransportPipe,
			Tag:         "chat",
			DialTimeout: 10 * time.Second,
		},
	}
}

// ParseLevel parses a level name, as returned by logiface.Level.String, or
// one of the aliases "error" and "warn".
func ParseLevel(s string) (logiface.Level, error) {
	switch name := strings.ToLower(strings.TrimSpace(s)); name {
	case "error":
		return logiface.LevelError, nil
	case "warn":
		return logiface.LevelWarning, nil
	default:
		for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
			if level.String() == name {
				return level, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
