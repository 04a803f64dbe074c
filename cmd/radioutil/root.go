package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/internal/config"
)

var (
	cfgFile     string
	flagDevice  string
	flagBaud    int
	flagDev     bool
	flagFreq    uint32
	flagBw      uint32
	flagPower   int8
	flagIndex   uint16
	flagPoll    time.Duration
	flagTrace   string
	flagDB      string
	flagListen  string
	flagLogFile string
)

var rootCmd = &cobra.Command{
	Use:   "radioutil",
	Short: "Packet radio link utility",
	Long: `Radioutil drives a serial packet modem through its whole life cycle:
one-shot transmits and receives, RSSI surveys, an echo responder and a
round-trip ping with loss statistics.

Examples:
  # Send a packet on the default channel
  radioutil -d /dev/ttyUSB0 tx "hello"

  # Receive until interrupted, tracing packets to a pcapng file
  radioutil -d /dev/ttyUSB0 --trace link.pcapng rx

  # Ping an echo responder, recording the run and serving the monitor
  radioutil -d /dev/ttyUSB0 --db trace.db --listen :8080 ping

  # Exercise any command against the built-in simulator
  radioutil --dev ping`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (YAML)")
	pf.StringVarP(&flagDevice, "device", "d", "", "Serial device of the modem")
	pf.IntVarP(&flagBaud, "baud", "b", 0, "Serial baud rate")
	pf.BoolVar(&flagDev, "dev", false, "Use the built-in loopback simulator instead of hardware")
	pf.Uint32Var(&flagFreq, "freq", 0, "Carrier frequency in Hz")
	pf.Uint32Var(&flagBw, "bw", 0, "Bandwidth in Hz")
	pf.Int8Var(&flagPower, "power", 0, "Transmit power in dBm")
	pf.Uint16Var(&flagIndex, "index", 0, "Driver channel index")
	pf.DurationVar(&flagPoll, "poll", 0, "Pause between completion polls")
	pf.StringVar(&flagTrace, "trace", "", "Write completed packets to a pcapng file")
	pf.StringVar(&flagDB, "db", "", "Record the run into a SQLite trace database")
	pf.StringVar(&flagListen, "listen", "", "Serve the monitor web interface on this address")
	pf.StringVar(&flagLogFile, "log-file", "", "Append diagnostics to a file instead of stderr")
}

// loadConfig resolves the effective configuration: defaults, then the
// config file, then command line flags, each layer overriding the last.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	pf := rootCmd.PersistentFlags()
	if flagDevice != "" {
		cfg.Device = flagDevice
	}
	if pf.Changed("baud") {
		cfg.Baud = flagBaud
	}
	if pf.Changed("freq") {
		cfg.Channel.FrequencyHz = flagFreq
	}
	if pf.Changed("bw") {
		cfg.Channel.BandwidthHz = flagBw
	}
	if pf.Changed("power") {
		cfg.Channel.PowerDBm = flagPower
	}
	if pf.Changed("index") {
		cfg.Channel.Index = flagIndex
	}
	if pf.Changed("poll") {
		cfg.PollInterval = flagPoll
	}
	if flagTrace != "" {
		cfg.Trace = flagTrace
	}
	if flagDB != "" {
		cfg.DB = flagDB
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
