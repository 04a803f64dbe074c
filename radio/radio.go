// Package radio defines the capability contract for packet-radio transceivers.
//
// A driver implements the narrow interfaces below for whatever its silicon
// supports. Application code composes the capabilities it needs at the call
// site rather than depending on one monolithic device interface, so a
// transmit-only beacon driver and a full transceiver both fit the same
// ecosystem.
//
// All operations share one state machine: new operations start only from
// StateIdle, a call made in a state that does not permit it fails with
// KindInvalidState and leaves the hardware untouched, and StateError is
// terminal until a Configure call is accepted. Transmit and receive are
// two-phase: a Start call begins the operation and a Check call polls for
// completion without blocking. The caller decides how and when to re-poll;
// see the blocking package for a derived synchronous façade.
package radio

import "time"

// PacketInfo carries the telemetry a driver captures alongside a received
// packet. Values are device-native: RSSI is typically dBm but the contract
// only promises a signed quantity, and LQI scales differ per chip. A
// PacketInfo is immutable once produced and owned by whoever received it.
type PacketInfo struct {
	// RSSI is the received signal strength in device-native units.
	RSSI int16
	// LQI is the link quality indicator on the device's own scale.
	LQI uint8
	// Timestamp records when the driver completed the reception.
	Timestamp time.Time
	// Length is the payload byte count.
	Length int
}

// StateReader reports the radio's position in the shared state machine.
// Implementations answer from memory: State never blocks and has no side
// effect on the device.
type StateReader interface {
	State() State
}

// Configurer applies a channel configuration.
//
// Configure is accepted from StateIdle and from StateError, where it doubles
// as the reset path. During the call the radio is StateConfiguring; on success
// it returns to StateIdle. A rejected configuration fails with
// KindConfiguration and leaves the previous configuration and state in
// effect, so a radio in StateError stays there until a Configure is accepted.
// Calls made while transmitting, receiving or sleeping fail with
// KindInvalidState.
type Configurer interface {
	Configure(ch Channel) error
}

// Transmitter is the non-blocking transmit capability.
type Transmitter interface {
	// StartTransmit begins sending payload and moves the radio to
	// StateTransmitting. It fails with KindInvalidState unless the radio is
	// idle, and with KindConfiguration if no configuration has been accepted
	// yet.
	StartTransmit(payload []byte) error

	// CheckTransmit polls an in-flight transmission. It returns false while
	// the operation is still running and true once it has finished, at which
	// point the radio is back in StateIdle. Errors move the radio to
	// StateError.
	CheckTransmit() (done bool, err error)
}

// Receiver is the non-blocking receive capability, mirroring Transmitter.
type Receiver interface {
	// StartReceive opens the receiver and moves the radio to StateReceiving.
	// It fails with KindInvalidState unless the radio is idle, and with
	// KindConfiguration if no configuration has been accepted yet.
	StartReceive() error

	// CheckReceive polls for a completed reception. While nothing has
	// arrived it returns done == false. Once a packet is in, it returns the
	// payload, its telemetry and done == true, and the radio is back in
	// StateIdle. Drivers that enforce a receive window report its expiry as
	// a KindTimeout error.
	CheckReceive() (payload []byte, info PacketInfo, done bool, err error)
}

// SignalMeter is the optional signal-quality capability. ReadRSSI is valid
// while the radio is receiving (or immediately after a reception completes,
// if the driver latches the value) and fails with KindInvalidState otherwise.
type SignalMeter interface {
	ReadRSSI() (int16, error)
}

// Sleeper is the optional low-power capability. Sleep is accepted from
// StateIdle only; Wake returns the radio to StateIdle.
type Sleeper interface {
	Sleep() error
	Wake() error
}

// TransmitReceiver is the composition consumed by packet-level helpers such
// as the capture wrapper.
type TransmitReceiver interface {
	Transmitter
	Receiver
}

// Transceiver is the full contract a general-purpose driver satisfies.
type Transceiver interface {
	StateReader
	Configurer
	Transmitter
	Receiver
}
