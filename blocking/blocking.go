// Package blocking derives synchronous transmit and receive calls from the
// two-phase primitives in package radio.
//
// The adapter owns the polling loop a synchronous caller would otherwise
// write by hand: start the operation, poll the matching check until it
// reports completion, forward the result. It imposes no deadline of its own.
// Callers bound a wait with the context; on cancellation the adapter returns
// ctx.Err() and stops polling, leaving the radio in whatever in-flight state
// it was in. Recovering from that (a state check, a reconfigure) is the
// caller's decision.
package blocking

import (
	"context"
	"runtime"
	"time"

	"github.com/banshee-data/radiohal/radio"
)

// Clock is the pacing source for the poll loop. internal/timeutil's
// RealClock and MockClock both satisfy it.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// stdClock paces with the standard time package.
type stdClock struct{}

func (stdClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Options controls how the adapter polls.
type Options struct {
	// PollInterval is the pause between completion checks. Zero polls
	// continuously, yielding the scheduler between checks.
	PollInterval time.Duration

	// Clock paces the poll loop when PollInterval is nonzero. Nil uses
	// the standard clock.
	Clock Clock
}

func (o Options) clock() Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return stdClock{}
}

// Transmit sends payload and waits for the transmission to complete. Errors
// from the radio are returned unchanged; a cancelled context returns
// ctx.Err() with the transmission still in flight.
func Transmit(ctx context.Context, r radio.Transmitter, payload []byte, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.StartTransmit(payload); err != nil {
		return err
	}
	clock := opts.clock()
	for {
		done, err := r.CheckTransmit()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := pause(ctx, clock, opts.PollInterval); err != nil {
			return err
		}
	}
}

// Receive waits for one packet and returns its payload and metadata. Errors
// from the radio are returned unchanged; a cancelled context returns
// ctx.Err() with the receive still in flight.
func Receive(ctx context.Context, r radio.Receiver, opts Options) ([]byte, radio.PacketInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, radio.PacketInfo{}, err
	}
	if err := r.StartReceive(); err != nil {
		return nil, radio.PacketInfo{}, err
	}
	clock := opts.clock()
	for {
		payload, info, done, err := r.CheckReceive()
		if err != nil {
			return nil, radio.PacketInfo{}, err
		}
		if done {
			return payload, info, nil
		}
		if err := pause(ctx, clock, opts.PollInterval); err != nil {
			return nil, radio.PacketInfo{}, err
		}
	}
}

// pause waits out one poll interval or returns early on cancellation.
func pause(ctx context.Context, clock Clock, interval time.Duration) error {
	if interval <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		runtime.Gosched()
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(interval):
		return nil
	}
}
