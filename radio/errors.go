package radio

import (
	"errors"
	"fmt"
)

// Kind classifies every failure a radio operation can report. The set is
// closed: drivers fold causes the taxonomy does not name into KindDevice and
// attach the device-native code. Errors are data, never control flow; no
// layer in this module retries on its own.
type Kind uint8

const (
	// KindConfiguration reports a rejected channel configuration, or a
	// transmit/receive attempted before any configuration was accepted.
	KindConfiguration Kind = iota + 1
	// KindTransmit reports a failed transmission.
	KindTransmit
	// KindReceive reports a failed reception.
	KindReceive
	// KindTimeout reports an expired receive window enforced by the driver.
	KindTimeout
	// KindInvalidState reports a call made in a state that does not permit
	// it. The hardware is left untouched.
	KindInvalidState
	// KindIO reports a failure on the path to the device or to a capture
	// sink.
	KindIO
	// KindDevice reports a driver-specific cause identified by Error.Code.
	KindDevice
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransmit:
		return "transmit"
	case KindReceive:
		return "receive"
	case KindTimeout:
		return "timeout"
	case KindInvalidState:
		return "invalid state"
	case KindIO:
		return "io"
	case KindDevice:
		return "device"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is the error value radio operations return. A returned chain carries
// exactly one Error; layers above the driver (the blocking adapter, the
// capture wrapper) forward it unchanged rather than rewrapping, so the
// originating kind survives to the caller.
type Error struct {
	Kind Kind
	Op   string // failing operation, e.g. "start transmit"
	Code int    // device-native code, meaningful for KindDevice only
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("radio: %s: %s", e.Op, e.Kind)
	if e.Kind == KindDevice {
		msg = fmt.Sprintf("%s code %d", msg, e.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error of the given kind around a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// DeviceError builds a KindDevice Error carrying the device-native code.
func DeviceError(op string, code int) *Error {
	return &Error{Kind: KindDevice, Op: op, Code: code}
}

// KindOf extracts the classification from err's chain. It returns zero when
// err carries no radio Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err's chain carries a radio Error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
