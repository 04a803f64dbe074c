// Package config loads and validates the radioutil configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/radiohal/radio"
)

// Config holds every tunable of the utility. Values come from defaults,
// then an optional YAML file, then command line flags, each layer
// overriding the one before it.
type Config struct {
	// Serial connection to the modem.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	// RF channel applied before any traffic.
	Channel ChannelConfig `yaml:"channel"`

	// PollInterval paces the blocking adapter between driver polls.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Trace names a pcapng file that receives every completed packet.
	Trace string `yaml:"trace"`

	// DB names a SQLite trace database for session recording.
	DB string `yaml:"db"`

	// Listen is the monitor web server address. Empty disables it.
	Listen string `yaml:"listen"`

	// LogFile redirects diagnostics away from stderr when set.
	LogFile string `yaml:"log_file"`

	Ping PingConfig `yaml:"ping"`
	Echo EchoConfig `yaml:"echo"`
	RSSI RSSIConfig `yaml:"rssi"`
}

// ChannelConfig is the file representation of an RF channel.
type ChannelConfig struct {
	FrequencyHz uint32 `yaml:"frequency_hz"`
	BandwidthHz uint32 `yaml:"bandwidth_hz"`
	PowerDBm    int8   `yaml:"power_dbm"`
	Index       uint16 `yaml:"index"`
}

// Channel converts the file representation into the driver type.
func (c ChannelConfig) Channel() radio.Channel {
	return radio.Channel{
		FrequencyHz: c.FrequencyHz,
		BandwidthHz: c.BandwidthHz,
		PowerDBm:    c.PowerDBm,
		Index:       c.Index,
	}
}

// PingConfig tunes the round-trip ping command.
type PingConfig struct {
	Rounds       int           `yaml:"rounds"`
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
	Gap          time.Duration `yaml:"gap"`
}

// EchoConfig tunes the echo responder command.
type EchoConfig struct {
	AppendInfo bool          `yaml:"append_info"`
	Delay      time.Duration `yaml:"delay"`
}

// RSSIConfig tunes the signal survey command. Samples of zero runs the
// survey until interrupted.
type RSSIConfig struct {
	Interval time.Duration `yaml:"interval"`
	Samples  int           `yaml:"samples"`
}

// DefaultConfig returns a configuration with sensible defaults for an
// 868 MHz link.
func DefaultConfig() *Config {
	return &Config{
		Baud: 115200,
		Channel: ChannelConfig{
			FrequencyHz: 868_300_000,
			BandwidthHz: 125_000,
			PowerDBm:    14,
		},
		PollInterval: time.Millisecond,
		Ping: PingConfig{
			Rounds:       10,
			ReplyTimeout: time.Second,
			Gap:          200 * time.Millisecond,
		},
		Echo: EchoConfig{
			AppendInfo: true,
		},
		RSSI: RSSIConfig{
			Interval: 100 * time.Millisecond,
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if err := c.Channel.Channel().Validate(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative, got %v", c.PollInterval)
	}
	if c.Ping.Rounds <= 0 {
		return fmt.Errorf("ping.rounds must be positive, got %d", c.Ping.Rounds)
	}
	if c.Ping.ReplyTimeout <= 0 {
		return fmt.Errorf("ping.reply_timeout must be positive, got %v", c.Ping.ReplyTimeout)
	}
	if c.Ping.Gap < 0 {
		return fmt.Errorf("ping.gap must not be negative, got %v", c.Ping.Gap)
	}
	if c.Echo.Delay < 0 {
		return fmt.Errorf("echo.delay must not be negative, got %v", c.Echo.Delay)
	}
	if c.RSSI.Interval <= 0 {
		return fmt.Errorf("rssi.interval must be positive, got %v", c.RSSI.Interval)
	}
	if c.RSSI.Samples < 0 {
		return fmt.Errorf("rssi.samples must not be negative, got %d", c.RSSI.Samples)
	}
	return nil
}
