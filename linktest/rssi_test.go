package linktest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/radiohal/radio"
	"github.com/banshee-data/radiohal/radiotest"
)

var surveyChannel = radio.Channel{FrequencyHz: 868_300_000, BandwidthHz: 125_000}

func surveySim(t *testing.T) *radiotest.Sim {
	t.Helper()
	sim := radiotest.NewSim()
	if err := sim.Configure(surveyChannel); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	return sim
}

func TestPollRSSICollectsSamples(t *testing.T) {
	sim := surveySim(t)
	sim.RSSI = -70
	clock := &instantClock{}

	stats, err := PollRSSI(context.Background(), sim,
		RSSIConfig{Interval: time.Millisecond, Samples: 5},
		Options{Clock: clock, Logf: t.Logf})
	if err != nil {
		t.Fatalf("PollRSSI() error = %v", err)
	}
	if stats.Count() != 5 {
		t.Errorf("Count() = %d, want 5", stats.Count())
	}
	if stats.Mean() != -70 {
		t.Errorf("Mean() = %v, want -70", stats.Mean())
	}
	if got := len(clock.Intervals()); got != 4 {
		t.Errorf("clock paced %d pauses, want 4 for 5 samples", got)
	}
}

func TestPollRSSIVaryingSignal(t *testing.T) {
	sim := surveySim(t)
	seq := []int16{-50, -60, -70}
	sim.RSSI = seq[0]
	n := 0

	stats, err := PollRSSI(context.Background(), sim,
		RSSIConfig{
			Interval: time.Millisecond,
			Samples:  3,
			OnSample: func(int16) {
				n++
				if n < len(seq) {
					sim.RSSI = seq[n]
				}
			},
		},
		Options{Clock: &instantClock{}})
	if err != nil {
		t.Fatalf("PollRSSI() error = %v", err)
	}
	if stats.Mean() != -60 {
		t.Errorf("Mean() = %v, want -60", stats.Mean())
	}
	if stats.Min() != -70 || stats.Max() != -50 {
		t.Errorf("range = %v to %v, want -70 to -50", stats.Min(), stats.Max())
	}
}

func TestPollRSSIStartFailure(t *testing.T) {
	sim := radiotest.NewSim() // unconfigured

	_, err := PollRSSI(context.Background(), sim, RSSIConfig{Samples: 1}, Options{})
	if radio.KindOf(err) != radio.KindConfiguration {
		t.Errorf("PollRSSI() error = %v, want configuration kind", err)
	}
}

func TestPollRSSIReadFailure(t *testing.T) {
	sim := surveySim(t)
	cause := errors.New("meter offline")
	sim.ReadRSSIErr = cause

	stats, err := PollRSSI(context.Background(), sim, RSSIConfig{Samples: 3}, Options{})
	if !errors.Is(err, cause) {
		t.Errorf("PollRSSI() error = %v, want %v", err, cause)
	}
	if stats.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after immediate failure", stats.Count())
	}
}

func TestPollRSSIPreCancelled(t *testing.T) {
	sim := surveySim(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PollRSSI(ctx, sim, RSSIConfig{}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("PollRSSI() error = %v, want context.Canceled", err)
	}
	if got := sim.State(); got != radio.StateIdle {
		t.Errorf("State() = %v, want idle: receive must not have started", got)
	}
}

func TestPollRSSIUnboundedStopsOnContext(t *testing.T) {
	sim := surveySim(t)
	sim.RSSI = -40
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := 0
	stats, err := PollRSSI(ctx, sim,
		RSSIConfig{
			Interval: time.Millisecond,
			OnSample: func(int16) {
				n++
				if n == 3 {
					cancel()
				}
			},
		},
		Options{Clock: neverClock{}})
	if err != nil {
		t.Fatalf("PollRSSI() error = %v", err)
	}
	if stats.Count() != 3 {
		t.Errorf("Count() = %d, want 3 samples before cancellation", stats.Count())
	}
}
