package linktest

import (
	"context"
	"time"

	"github.com/banshee-data/radiohal/capture"
	"github.com/banshee-data/radiohal/radio"
)

// Meter is the capability set PollRSSI needs.
type Meter interface {
	radio.Receiver
	radio.SignalMeter
}

// RSSIConfig tunes PollRSSI.
type RSSIConfig struct {
	// Interval between samples. Default 100ms.
	Interval time.Duration

	// Samples bounds the run. Zero samples until ctx ends.
	Samples int

	// OnSample observes each reading as it is taken. May be nil.
	OnSample func(rssi int16)
}

// PollRSSI opens a receive window and samples the signal meter on a fixed
// period, accumulating the readings. The run ends when the sample budget is
// reached or ctx does; ctx ending is the normal way to stop an unbounded
// survey and is not an error. The receive window is left open afterwards:
// the contract has no abort, so the caller reconfigures or keeps receiving.
func PollRSSI(ctx context.Context, r Meter, cfg RSSIConfig, opts Options) (capture.RollingStats, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	clock := opts.clock()

	var stats capture.RollingStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if err := r.StartReceive(); err != nil {
		return stats, err
	}
	for {
		rssi, err := r.ReadRSSI()
		if err != nil {
			return stats, err
		}
		stats.Update(float64(rssi))
		if cfg.OnSample != nil {
			cfg.OnSample(rssi)
		}
		opts.logf("rssi sample %d: %d dBm", stats.Count(), rssi)

		if cfg.Samples > 0 && stats.Count() >= uint64(cfg.Samples) {
			return stats, nil
		}
		if err := pause(ctx, clock, cfg.Interval); err != nil {
			return stats, nil
		}
	}
}
