package linktest

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/banshee-data/radiohal/blocking"
	"github.com/banshee-data/radiohal/capture"
	"github.com/banshee-data/radiohal/radio"
)

// Report summarizes a ping run.
type Report struct {
	// Sent and Received count rounds.
	Sent     int
	Received int

	// LocalRSSI accumulates reply RSSI as heard on this end.
	LocalRSSI capture.RollingStats

	// RemoteRSSI accumulates the RSSI trailer an AppendInfo responder
	// attached, when parsed.
	RemoteRSSI capture.RollingStats
}

// Loss returns the fraction of unanswered rounds, 0 to 1.
func (r Report) Loss() float64 {
	if r.Sent == 0 {
		return 0
	}
	return float64(r.Sent-r.Received) / float64(r.Sent)
}

// PingConfig tunes PingPong.
type PingConfig struct {
	// Rounds is the number of pings. Default 10.
	Rounds int

	// ReplyTimeout bounds the wait for each echo. Default 1s.
	ReplyTimeout time.Duration

	// ParseInfo reads the big-endian int16 RSSI trailer appended by an
	// AppendInfo responder.
	ParseInfo bool

	// Gap pauses between rounds.
	Gap time.Duration
}

// PingPong sends numbered pings and matches the echoes. Each round
// transmits its index as a big-endian uint32 and waits up to ReplyTimeout
// for the echo; a timeout is a miss, never a failure. When a miss leaves
// the receive window open, the next round drains it first, so a late echo
// cannot satisfy the wrong round.
func PingPong(ctx context.Context, r Radio, cfg PingConfig, opts Options) (Report, error) {
	if cfg.Rounds <= 0 {
		cfg.Rounds = 10
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = time.Second
	}
	clock := opts.clock()

	var rep Report
	rxOpen := false
	for i := 0; i < cfg.Rounds; i++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if rxOpen {
			if err := drainWindow(ctx, r, opts); err != nil {
				return rep, err
			}
			rxOpen = false
		}

		ping := binary.BigEndian.AppendUint32(nil, uint32(i))
		if err := blocking.Transmit(ctx, r, ping, opts.Poll); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			return rep, err
		}
		rep.Sent++

		rctx, cancel := context.WithTimeout(ctx, cfg.ReplyTimeout)
		reply, info, err := blocking.Receive(rctx, r, opts.Poll)
		cancel()
		switch {
		case err == nil:
			if len(reply) < 4 || binary.BigEndian.Uint32(reply[:4]) != uint32(i) {
				opts.logf("round %d: mismatched reply %x", i, reply)
				break
			}
			rep.Received++
			rep.LocalRSSI.Update(float64(info.RSSI))
			if cfg.ParseInfo && len(reply) >= 6 {
				remote := int16(binary.BigEndian.Uint16(reply[4:6]))
				rep.RemoteRSSI.Update(float64(remote))
				opts.logf("round %d: reply at %d dBm, remote heard %d dBm", i, info.RSSI, remote)
			} else {
				opts.logf("round %d: reply at %d dBm", i, info.RSSI)
			}
		case ctx.Err() != nil:
			return rep, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			opts.logf("round %d: no reply within %v", i, cfg.ReplyTimeout)
			rxOpen = true
		case radio.IsKind(err, radio.KindTimeout):
			opts.logf("round %d: receive window expired", i)
		default:
			return rep, err
		}

		if cfg.Gap > 0 && i < cfg.Rounds-1 {
			if err := pause(ctx, clock, cfg.Gap); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

// drainWindow runs an abandoned receive window to completion: a late echo
// is discarded, an expiry closes it.
func drainWindow(ctx context.Context, r Radio, opts Options) error {
	clock := opts.clock()
	for {
		payload, _, done, err := r.CheckReceive()
		switch {
		case err == nil && done:
			opts.logf("late reply %x discarded", payload)
			return nil
		case err == nil:
		case radio.IsKind(err, radio.KindTimeout):
			return nil
		default:
			return err
		}
		if err := pause(ctx, clock, opts.Poll.PollInterval); err != nil {
			return err
		}
	}
}
