package radio

import (
	"errors"
	"fmt"
)

// Channel holds one complete RF configuration. Configure applies a Channel
// atomically: a rejected Channel leaves the previously accepted one in
// effect.
type Channel struct {
	// FrequencyHz is the carrier frequency. Zero is invalid; there is no
	// default channel.
	FrequencyHz uint32
	// BandwidthHz is the occupied bandwidth. Drivers reject values their
	// hardware cannot synthesize.
	BandwidthHz uint32
	// PowerDBm is the transmit power. Drivers clamp or reject values
	// outside the hardware range; which of the two is per-driver.
	PowerDBm int8
	// Index is an optional driver-interpreted channel number. Drivers
	// that work from FrequencyHz alone ignore it.
	Index uint16
}

var errZeroFrequency = errors.New("frequency is zero")

// Validate checks the driver-independent constraints on c. Drivers call it
// before touching hardware and then apply their own range checks.
func (c Channel) Validate() error {
	if c.FrequencyHz == 0 {
		return &Error{Kind: KindConfiguration, Op: "validate channel", Err: errZeroFrequency}
	}
	return nil
}

func (c Channel) String() string {
	return fmt.Sprintf("%.3f MHz bw %d Hz %+d dBm index %d",
		float64(c.FrequencyHz)/1e6, c.BandwidthHz, c.PowerDBm, c.Index)
}
