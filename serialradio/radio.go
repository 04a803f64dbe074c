package serialradio

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/radiohal/radio"
)

// Config tunes the driver. The zero value works against a healthy modem.
type Config struct {
	// ReadTimeout bounds each poll's port read. It is applied to ports
	// that implement TimeoutPorter. Default 5ms.
	ReadTimeout time.Duration

	// AckTimeout bounds the wait for a command acknowledgement. Default
	// 200ms.
	AckTimeout time.Duration

	// MaxPayload caps transmit payloads. The wire format tops out at 255;
	// set lower for modems with smaller buffers. Default 255.
	MaxPayload int

	// Logf receives diagnostics about protocol oddities such as frames
	// arriving in the wrong state. Default log.Printf; set to a no-op to
	// silence.
	Logf func(format string, args ...any)
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Millisecond
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 200 * time.Millisecond
	}
	if c.MaxPayload <= 0 || c.MaxPayload > 255 {
		c.MaxPayload = 255
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
	return c
}

// Radio drives one serial-attached modem. It implements the full capability
// contract: state reporting, configuration, two-phase transmit and receive,
// RSSI polling and sleep control. Methods are safe for concurrent use; the
// shared state machine serializes them anyway.
type Radio struct {
	cfg Config
	now func() time.Time

	mu         sync.Mutex
	port       Porter
	dec        decoder
	pending    []frame
	state      radio.State
	configured bool
	channel    radio.Channel
	txLen      int
	scratch    [maxFrame]byte
}

var (
	_ radio.Transceiver = (*Radio)(nil)
	_ radio.SignalMeter = (*Radio)(nil)
	_ radio.Sleeper     = (*Radio)(nil)
)

// New wraps an already open port. If the port supports read timeouts the
// driver's poll budget is applied to it.
func New(port Porter, cfg Config) *Radio {
	cfg = cfg.withDefaults()
	if tp, ok := port.(TimeoutPorter); ok {
		if err := tp.SetReadTimeout(cfg.ReadTimeout); err != nil {
			cfg.Logf("serialradio: set read timeout: %v", err)
		}
	}
	return &Radio{cfg: cfg, now: time.Now, port: port}
}

// Open opens the serial device at path and wraps it.
func Open(path string, opts PortOptions, cfg Config) (*Radio, error) {
	port, err := OpenPort(path, opts)
	if err != nil {
		return nil, err
	}
	return New(port, cfg), nil
}

// Close releases the serial port.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port.Close()
}

// State implements radio.StateReader.
func (r *Radio) State() radio.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Channel returns the configuration currently in effect.
func (r *Radio) Channel() radio.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

// Configure implements radio.Configurer. It blocks for at most AckTimeout
// waiting for the modem to accept or reject the channel.
func (r *Radio) Configure(ch radio.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateIdle && r.state != radio.StateError {
		return radio.Errorf(radio.KindInvalidState, "configure", "state is %s", r.state)
	}
	if err := ch.Validate(); err != nil {
		return err
	}

	if err := r.send(cmdConfigure, encodeChannel(ch)); err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, "configure", "%w", err)
	}
	status, err := r.awaitAck()
	if err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, "configure", "%w", err)
	}
	switch status {
	case ackAccepted:
		// Configure doubles as the reset path: whatever the modem sent
		// before this point belongs to an abandoned session.
		if len(r.pending) > 0 {
			r.cfg.Logf("serialradio: dropping %d stale frames on configure", len(r.pending))
			r.pending = nil
		}
		r.dec.buf = nil
		r.channel = ch
		r.configured = true
		r.state = radio.StateIdle
		return nil
	case ackBadConfig:
		// Rejection leaves the previous configuration in effect.
		return radio.Errorf(radio.KindConfiguration, "configure", "modem rejected %v", ch)
	default:
		return radio.DeviceError("configure", int(status))
	}
}

// StartTransmit implements radio.Transmitter.
func (r *Radio) StartTransmit(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateIdle {
		return radio.Errorf(radio.KindInvalidState, "start transmit", "state is %s", r.state)
	}
	if !r.configured {
		return radio.Errorf(radio.KindConfiguration, "start transmit", "no channel configured")
	}
	if len(payload) > r.cfg.MaxPayload {
		return radio.Errorf(radio.KindTransmit, "start transmit", "payload %d bytes exceeds limit %d", len(payload), r.cfg.MaxPayload)
	}

	if err := r.send(cmdTxStart, payload); err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, "start transmit", "%w", err)
	}
	status, err := r.awaitAck()
	if err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, "start transmit", "%w", err)
	}
	if status != ackAccepted {
		return radio.DeviceError("start transmit", int(status))
	}
	r.dropStale(evtTxDone)
	r.txLen = len(payload)
	r.state = radio.StateTransmitting
	return nil
}

// CheckTransmit implements radio.Transmitter.
func (r *Radio) CheckTransmit() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateTransmitting {
		return false, radio.Errorf(radio.KindInvalidState, "check transmit", "state is %s", r.state)
	}
	if err := r.pump(); err != nil {
		r.state = radio.StateError
		return false, radio.Errorf(radio.KindIO, "check transmit", "%w", err)
	}
	f, ok := r.take(evtTxDone, evtFault)
	if !ok {
		return false, nil
	}
	if f.typ == evtFault {
		r.state = radio.StateError
		return false, radio.DeviceError("check transmit", faultCode(f))
	}
	r.txLen = 0
	r.state = radio.StateIdle
	return true, nil
}

// StartReceive implements radio.Receiver.
func (r *Radio) StartReceive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateIdle {
		return radio.Errorf(radio.KindInvalidState, "start receive", "state is %s", r.state)
	}
	if !r.configured {
		return radio.Errorf(radio.KindConfiguration, "start receive", "no channel configured")
	}

	if err := r.send(cmdRxStart, nil); err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, "start receive", "%w", err)
	}
	status, err := r.awaitAck()
	if err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, "start receive", "%w", err)
	}
	if status != ackAccepted {
		return radio.DeviceError("start receive", int(status))
	}
	r.dropStale(evtRxPacket, evtRxTimeout)
	r.state = radio.StateReceiving
	return nil
}

// CheckReceive implements radio.Receiver.
func (r *Radio) CheckReceive() ([]byte, radio.PacketInfo, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateReceiving {
		return nil, radio.PacketInfo{}, false, radio.Errorf(radio.KindInvalidState, "check receive", "state is %s", r.state)
	}
	if err := r.pump(); err != nil {
		r.state = radio.StateError
		return nil, radio.PacketInfo{}, false, radio.Errorf(radio.KindIO, "check receive", "%w", err)
	}
	f, ok := r.take(evtRxPacket, evtRxTimeout, evtFault)
	if !ok {
		return nil, radio.PacketInfo{}, false, nil
	}
	switch f.typ {
	case evtFault:
		r.state = radio.StateError
		return nil, radio.PacketInfo{}, false, radio.DeviceError("check receive", faultCode(f))
	case evtRxTimeout:
		// Window expiry is a normal outcome; the radio is idle again.
		r.state = radio.StateIdle
		return nil, radio.PacketInfo{}, false, radio.Errorf(radio.KindTimeout, "check receive", "receive window expired")
	}
	if len(f.payload) < 3 {
		r.state = radio.StateError
		return nil, radio.PacketInfo{}, false, radio.Errorf(radio.KindReceive, "check receive", "runt packet event, %d bytes", len(f.payload))
	}
	info := radio.PacketInfo{
		RSSI:      int16(binary.BigEndian.Uint16(f.payload[0:2])),
		LQI:       f.payload[2],
		Timestamp: r.now(),
		Length:    len(f.payload) - 3,
	}
	payload := append([]byte(nil), f.payload[3:]...)
	r.state = radio.StateIdle
	return payload, info, true, nil
}

// ReadRSSI implements radio.SignalMeter. The modem only samples while its
// receiver is open, so the call is valid in StateReceiving.
func (r *Radio) ReadRSSI() (int16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateReceiving {
		return 0, radio.Errorf(radio.KindInvalidState, "read rssi", "state is %s", r.state)
	}
	if err := r.send(cmdReadRSSI, nil); err != nil {
		r.state = radio.StateError
		return 0, radio.Errorf(radio.KindIO, "read rssi", "%w", err)
	}
	f, err := r.await(evtRSSI, evtFault)
	if err != nil {
		r.state = radio.StateError
		return 0, radio.Errorf(radio.KindIO, "read rssi", "%w", err)
	}
	if f.typ == evtFault {
		r.state = radio.StateError
		return 0, radio.DeviceError("read rssi", faultCode(f))
	}
	if len(f.payload) < 2 {
		return 0, radio.Errorf(radio.KindReceive, "read rssi", "runt rssi event, %d bytes", len(f.payload))
	}
	return int16(binary.BigEndian.Uint16(f.payload[0:2])), nil
}

// Sleep implements radio.Sleeper.
func (r *Radio) Sleep() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateIdle {
		return radio.Errorf(radio.KindInvalidState, "sleep", "state is %s", r.state)
	}
	if err := r.command(cmdSleep, "sleep"); err != nil {
		return err
	}
	r.state = radio.StateSleeping
	return nil
}

// Wake implements radio.Sleeper.
func (r *Radio) Wake() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != radio.StateSleeping {
		return radio.Errorf(radio.KindInvalidState, "wake", "state is %s", r.state)
	}
	if err := r.command(cmdWake, "wake"); err != nil {
		return err
	}
	r.state = radio.StateIdle
	return nil
}

// command sends a payload-less command and folds the acknowledgement into
// the error model. Callers hold the mutex.
func (r *Radio) command(typ byte, op string) error {
	if err := r.send(typ, nil); err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, op, "%w", err)
	}
	status, err := r.awaitAck()
	if err != nil {
		r.state = radio.StateError
		return radio.Errorf(radio.KindIO, op, "%w", err)
	}
	if status != ackAccepted {
		return radio.DeviceError(op, int(status))
	}
	return nil
}

func (r *Radio) send(typ byte, payload []byte) error {
	if _, err := r.port.Write(encodeFrame(typ, payload)); err != nil {
		return fmt.Errorf("write frame %#02x: %w", typ, err)
	}
	return nil
}

// pump drains whatever the port has buffered into the frame queue. A port
// read that times out yields zero bytes and no error; that is a normal
// empty poll.
func (r *Radio) pump() error {
	n, err := r.port.Read(r.scratch[:])
	if n > 0 {
		r.dec.feed(r.scratch[:n])
	}
	if err != nil {
		return fmt.Errorf("read port: %w", err)
	}
	for {
		f, ok := r.dec.next()
		if !ok {
			return nil
		}
		r.pending = append(r.pending, f)
	}
}

// dropStale removes queued frames of the given types before a new operation
// starts. A completion event from an abandoned session must not satisfy the
// session that begins now.
func (r *Radio) dropStale(types ...byte) {
	kept := r.pending[:0]
	dropped := 0
	for _, f := range r.pending {
		stale := false
		for _, t := range types {
			if f.typ == t {
				stale = true
				break
			}
		}
		if stale {
			dropped++
			continue
		}
		kept = append(kept, f)
	}
	r.pending = kept
	if dropped > 0 {
		r.cfg.Logf("serialradio: dropped %d stale frames", dropped)
	}
}

// take pops the earliest pending frame matching one of types, leaving the
// rest queued in arrival order.
func (r *Radio) take(types ...byte) (frame, bool) {
	for i, f := range r.pending {
		for _, t := range types {
			if f.typ == t {
				r.pending = append(r.pending[:i], r.pending[i+1:]...)
				return f, true
			}
		}
	}
	return frame{}, false
}

// await polls until a frame matching types arrives or AckTimeout passes.
// Unrelated frames, such as a packet landing while an RSSI reply is in
// flight, stay queued for their own consumer.
func (r *Radio) await(types ...byte) (frame, error) {
	deadline := r.now().Add(r.cfg.AckTimeout)
	for {
		if f, ok := r.take(types...); ok {
			return f, nil
		}
		if err := r.pump(); err != nil {
			return frame{}, err
		}
		if f, ok := r.take(types...); ok {
			return f, nil
		}
		if r.now().After(deadline) {
			return frame{}, fmt.Errorf("no reply within %v", r.cfg.AckTimeout)
		}
	}
}

func (r *Radio) awaitAck() (byte, error) {
	f, err := r.await(evtAck)
	if err != nil {
		return 0, err
	}
	if len(f.payload) < 1 {
		return 0, fmt.Errorf("runt ack")
	}
	return f.payload[0], nil
}

func faultCode(f frame) int {
	if len(f.payload) < 1 {
		return 0
	}
	return int(f.payload[0])
}
