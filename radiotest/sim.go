package radiotest

import (
	"sync"
	"time"

	"github.com/banshee-data/radiohal/radio"
)

// Sim is an in-memory transceiver with the full contract state machine. It
// enforces the same transition rules a hardware driver would: operations
// start only from idle, wrong-state calls fail with KindInvalidState and
// change nothing, and an injected device failure parks the radio in
// StateError until a Configure is accepted.
//
// Knob fields are read on each call; set them before handing the Sim to the
// code under test. Error fields are one-shot: returned once, then cleared.
type Sim struct {
	mu sync.Mutex

	// MaxPayload is the largest payload StartTransmit accepts.
	MaxPayload int

	// TxPolls is how many CheckTransmit calls a transmission takes to
	// complete. Minimum one.
	TxPolls int

	// RSSI is stamped on received packets and returned by ReadRSSI.
	RSSI int16

	// LQI is stamped on received packets.
	LQI uint8

	// Loopback feeds every completed transmission into the receive queue.
	Loopback bool

	// RxWindow bounds a receive session: after this many empty
	// CheckReceive polls the window expires with a KindTimeout error and
	// the radio returns to idle, the way modems with a hardware receive
	// timeout behave. Zero keeps the window open indefinitely.
	RxWindow int

	// Now supplies receive timestamps. Nil uses time.Now.
	Now func() time.Time

	// ConfigureErr is returned by the next Configure call if set. The
	// configuration in effect does not change.
	ConfigureErr error

	// StartTransmitErr is returned by the next StartTransmit call if set
	// and parks the radio in StateError.
	StartTransmitErr error

	// CheckTransmitErr is returned by the next CheckTransmit call if set
	// and parks the radio in StateError.
	CheckTransmitErr error

	// StartReceiveErr is returned by the next StartReceive call if set
	// and parks the radio in StateError.
	StartReceiveErr error

	// CheckReceiveErr is returned by the next CheckReceive call if set
	// and parks the radio in StateError.
	CheckReceiveErr error

	// ReadRSSIErr is returned by the next ReadRSSI call if set. The state
	// does not change; a failed measurement is not fatal.
	ReadRSSIErr error

	state      radio.State
	configured bool
	channel    radio.Channel
	pending    []byte
	txLeft     int
	rxPolls    int
	rxq        [][]byte
	sent       [][]byte
}

var (
	_ radio.Transceiver = (*Sim)(nil)
	_ radio.SignalMeter = (*Sim)(nil)
	_ radio.Sleeper     = (*Sim)(nil)
)

// NewSim returns an idle, unconfigured Sim with a 255 byte payload limit and
// single-poll transmissions.
func NewSim() *Sim {
	return &Sim{MaxPayload: 255, TxPolls: 1}
}

// State implements radio.StateReader.
func (s *Sim) State() radio.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Channel returns the configuration currently in effect.
func (s *Sim) Channel() radio.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Configure implements radio.Configurer. It is accepted from StateIdle and,
// as the reset path, from StateError.
func (s *Sim) Configure(ch radio.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateIdle && s.state != radio.StateError {
		return radio.Errorf(radio.KindInvalidState, "configure", "state is %s", s.state)
	}
	if err := s.ConfigureErr; err != nil {
		s.ConfigureErr = nil
		return err
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	s.channel = ch
	s.configured = true
	s.state = radio.StateIdle
	return nil
}

// StartTransmit implements radio.Transmitter.
func (s *Sim) StartTransmit(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateIdle {
		return radio.Errorf(radio.KindInvalidState, "start transmit", "state is %s", s.state)
	}
	if !s.configured {
		return radio.Errorf(radio.KindConfiguration, "start transmit", "no channel configured")
	}
	if err := s.StartTransmitErr; err != nil {
		s.StartTransmitErr = nil
		s.state = radio.StateError
		return err
	}
	if len(payload) > s.MaxPayload {
		return radio.Errorf(radio.KindTransmit, "start transmit", "payload %d bytes exceeds limit %d", len(payload), s.MaxPayload)
	}
	s.pending = append([]byte(nil), payload...)
	s.txLeft = s.TxPolls
	if s.txLeft < 1 {
		s.txLeft = 1
	}
	s.state = radio.StateTransmitting
	return nil
}

// CheckTransmit implements radio.Transmitter.
func (s *Sim) CheckTransmit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateTransmitting {
		return false, radio.Errorf(radio.KindInvalidState, "check transmit", "state is %s", s.state)
	}
	if err := s.CheckTransmitErr; err != nil {
		s.CheckTransmitErr = nil
		s.state = radio.StateError
		return false, err
	}
	s.txLeft--
	if s.txLeft > 0 {
		return false, nil
	}
	s.sent = append(s.sent, s.pending)
	if s.Loopback {
		s.rxq = append(s.rxq, append([]byte(nil), s.pending...))
	}
	s.pending = nil
	s.state = radio.StateIdle
	return true, nil
}

// StartReceive implements radio.Receiver.
func (s *Sim) StartReceive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateIdle {
		return radio.Errorf(radio.KindInvalidState, "start receive", "state is %s", s.state)
	}
	if !s.configured {
		return radio.Errorf(radio.KindConfiguration, "start receive", "no channel configured")
	}
	if err := s.StartReceiveErr; err != nil {
		s.StartReceiveErr = nil
		s.state = radio.StateError
		return err
	}
	s.rxPolls = 0
	s.state = radio.StateReceiving
	return nil
}

// CheckReceive implements radio.Receiver.
func (s *Sim) CheckReceive() ([]byte, radio.PacketInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateReceiving {
		return nil, radio.PacketInfo{}, false, radio.Errorf(radio.KindInvalidState, "check receive", "state is %s", s.state)
	}
	if err := s.CheckReceiveErr; err != nil {
		s.CheckReceiveErr = nil
		s.state = radio.StateError
		return nil, radio.PacketInfo{}, false, err
	}
	if len(s.rxq) == 0 {
		s.rxPolls++
		if s.RxWindow > 0 && s.rxPolls >= s.RxWindow {
			s.state = radio.StateIdle
			return nil, radio.PacketInfo{}, false, radio.Errorf(radio.KindTimeout, "check receive", "receive window expired")
		}
		return nil, radio.PacketInfo{}, false, nil
	}
	payload := s.rxq[0]
	s.rxq = s.rxq[1:]
	info := radio.PacketInfo{
		RSSI:      s.RSSI,
		LQI:       s.LQI,
		Timestamp: s.now(),
		Length:    len(payload),
	}
	s.state = radio.StateIdle
	return payload, info, true, nil
}

// ReadRSSI implements radio.SignalMeter. It is valid only while receiving.
func (s *Sim) ReadRSSI() (int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateReceiving {
		return 0, radio.Errorf(radio.KindInvalidState, "read rssi", "state is %s", s.state)
	}
	if err := s.ReadRSSIErr; err != nil {
		s.ReadRSSIErr = nil
		return 0, err
	}
	return s.RSSI, nil
}

// Sleep implements radio.Sleeper.
func (s *Sim) Sleep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateIdle {
		return radio.Errorf(radio.KindInvalidState, "sleep", "state is %s", s.state)
	}
	s.state = radio.StateSleeping
	return nil
}

// Wake implements radio.Sleeper.
func (s *Sim) Wake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != radio.StateSleeping {
		return radio.Errorf(radio.KindInvalidState, "wake", "state is %s", s.state)
	}
	s.state = radio.StateIdle
	return nil
}

// EnqueueReceive queues payload for a later CheckReceive to deliver.
func (s *Sim) EnqueueReceive(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rxq = append(s.rxq, append([]byte(nil), payload...))
}

// Sent returns every payload whose transmission completed, oldest first.
func (s *Sim) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	for i, p := range s.sent {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// Reset returns the Sim to idle and unconfigured, clearing queues and any
// pending injected errors. Knobs keep their values.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = radio.StateIdle
	s.configured = false
	s.channel = radio.Channel{}
	s.pending = nil
	s.txLeft = 0
	s.rxPolls = 0
	s.rxq = nil
	s.sent = nil
	s.ConfigureErr = nil
	s.StartTransmitErr = nil
	s.CheckTransmitErr = nil
	s.StartReceiveErr = nil
	s.CheckReceiveErr = nil
	s.ReadRSSIErr = nil
}

func (s *Sim) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
