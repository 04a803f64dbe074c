package radio

import "fmt"

// State identifies the operating state of a radio. Exactly one state holds at
// any instant. Transitions are driven only by capability calls; the single
// exception is a hardware fault or interrupt, which drivers surface as
// StateError.
type State uint8

const (
	// StateIdle is the rest state and the only state new operations may
	// start from.
	StateIdle State = iota
	// StateConfiguring is held while a Configure call applies parameters.
	StateConfiguring
	// StateTransmitting is held from StartTransmit until CheckTransmit
	// reports completion.
	StateTransmitting
	// StateReceiving is held from StartReceive until CheckReceive returns a
	// packet or a timeout.
	StateReceiving
	// StateSleeping is the low-power state entered via Sleep.
	StateSleeping
	// StateError marks a faulted radio. It is terminal until a Configure
	// call is accepted, which returns the radio to StateIdle.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateTransmitting:
		return "transmitting"
	case StateReceiving:
		return "receiving"
	case StateSleeping:
		return "sleeping"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}
