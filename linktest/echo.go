package linktest

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/banshee-data/radiohal/blocking"
	"github.com/banshee-data/radiohal/radio"
)

// EchoConfig tunes Echo.
type EchoConfig struct {
	// AppendInfo appends the received packet's RSSI as a big-endian
	// int16 before retransmitting, so the pinging side learns how it was
	// heard.
	AppendInfo bool

	// Delay pauses between reception and retransmission.
	Delay time.Duration
}

// Echo answers every received packet by retransmitting it until ctx ends,
// which is the normal way to stop the responder and is not an error.
// Receive window expiries reopen the window; any other failure stops the
// loop. Returns the number of packets echoed.
func Echo(ctx context.Context, r Radio, cfg EchoConfig, opts Options) (int, error) {
	clock := opts.clock()
	count := 0
	for {
		if ctx.Err() != nil {
			return count, nil
		}

		payload, info, err := blocking.Receive(ctx, r, opts.Poll)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return count, nil
		case radio.IsKind(err, radio.KindTimeout):
			continue
		default:
			return count, err
		}

		out := payload
		if cfg.AppendInfo {
			out = make([]byte, 0, len(payload)+2)
			out = append(out, payload...)
			out = binary.BigEndian.AppendUint16(out, uint16(info.RSSI))
		}

		if err := pause(ctx, clock, cfg.Delay); err != nil {
			return count, nil
		}
		if err := blocking.Transmit(ctx, r, out, opts.Poll); err != nil {
			if ctx.Err() != nil {
				return count, nil
			}
			return count, err
		}
		count++
		opts.logf("echoed %d bytes, heard at %d dBm", len(payload), info.RSSI)
	}
}
