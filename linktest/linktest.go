// Package linktest exercises a radio link end to end: RSSI surveys, an echo
// responder and a round-trip ping with loss and signal statistics. The
// helpers drive the blocking adapter and accept any capability composition,
// so they run unchanged against hardware drivers and the test simulator.
package linktest

import (
	"context"
	"runtime"
	"time"

	"github.com/banshee-data/radiohal/blocking"
	"github.com/banshee-data/radiohal/radio"
)

// Radio is the capability set the two-way helpers need.
type Radio interface {
	radio.Transmitter
	radio.Receiver
}

// Options tunes the helpers. The zero value polls hot and runs on real
// time.
type Options struct {
	// Poll is handed to the blocking adapter for every transmit and
	// receive.
	Poll blocking.Options

	// Clock paces delays, gaps and sampling intervals. Nil uses real
	// time.
	Clock blocking.Clock

	// Logf receives per-round diagnostics. Nil discards them.
	Logf func(format string, args ...any)
}

func (o Options) clock() blocking.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return realClock{}
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// pause waits for d or until ctx ends. A non-positive d only yields the
// processor.
func pause(ctx context.Context, clock blocking.Clock, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
