package radiotest

import (
	"bytes"
	"testing"
	"time"

	"github.com/banshee-data/radiohal/radio"
)

var simChannel = radio.Channel{FrequencyHz: 868_300_000, BandwidthHz: 125_000, PowerDBm: 14}

func configuredSim(t *testing.T) *Sim {
	t.Helper()
	s := NewSim()
	if err := s.Configure(simChannel); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	return s
}

func TestSimLifecycle(t *testing.T) {
	s := NewSim()
	if got := s.State(); got != radio.StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}

	if err := s.Configure(simChannel); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if got := s.Channel(); got != simChannel {
		t.Errorf("Channel() = %v, want %v", got, simChannel)
	}

	if err := s.StartTransmit([]byte{0xca, 0xfe}); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	if got := s.State(); got != radio.StateTransmitting {
		t.Errorf("state after start = %v, want transmitting", got)
	}
	done, err := s.CheckTransmit()
	if err != nil || !done {
		t.Fatalf("CheckTransmit() = %v, %v, want true, nil", done, err)
	}
	if got := s.State(); got != radio.StateIdle {
		t.Errorf("state after completion = %v, want idle", got)
	}

	sent := s.Sent()
	if len(sent) != 1 || !bytes.Equal(sent[0], []byte{0xca, 0xfe}) {
		t.Errorf("Sent() = %x, want one payload cafe", sent)
	}

	s.RSSI = -66
	s.LQI = 99
	s.EnqueueReceive([]byte("pkt"))
	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	payload, info, done, err := s.CheckReceive()
	if err != nil || !done {
		t.Fatalf("CheckReceive() = done %v, err %v, want true, nil", done, err)
	}
	if string(payload) != "pkt" {
		t.Errorf("payload = %q, want pkt", payload)
	}
	if info.RSSI != -66 || info.LQI != 99 || info.Length != 3 {
		t.Errorf("info = %+v, want RSSI -66 LQI 99 Length 3", info)
	}
	if got := s.State(); got != radio.StateIdle {
		t.Errorf("state after receive = %v, want idle", got)
	}
}

func TestSimUnconfiguredRejected(t *testing.T) {
	s := NewSim()

	if err := s.StartTransmit([]byte{1}); !radio.IsKind(err, radio.KindConfiguration) {
		t.Errorf("StartTransmit kind = %v, want KindConfiguration", radio.KindOf(err))
	}
	if err := s.StartReceive(); !radio.IsKind(err, radio.KindConfiguration) {
		t.Errorf("StartReceive kind = %v, want KindConfiguration", radio.KindOf(err))
	}
	if got := s.State(); got != radio.StateIdle {
		t.Errorf("state = %v, want idle after rejections", got)
	}
}

func TestSimWrongStateRejected(t *testing.T) {
	tests := []struct {
		name string
		prep func(*Sim)
		call func(*Sim) error
	}{
		{
			name: "start transmit while receiving",
			prep: func(s *Sim) { _ = s.StartReceive() },
			call: func(s *Sim) error { return s.StartTransmit([]byte{1}) },
		},
		{
			name: "start receive while transmitting",
			prep: func(s *Sim) { _ = s.StartTransmit([]byte{1}) },
			call: func(s *Sim) error { return s.StartReceive() },
		},
		{
			name: "check transmit while idle",
			prep: func(s *Sim) {},
			call: func(s *Sim) error { _, err := s.CheckTransmit(); return err },
		},
		{
			name: "check receive while transmitting",
			prep: func(s *Sim) { _ = s.StartTransmit([]byte{1}) },
			call: func(s *Sim) error { _, _, _, err := s.CheckReceive(); return err },
		},
		{
			name: "configure while receiving",
			prep: func(s *Sim) { _ = s.StartReceive() },
			call: func(s *Sim) error { return s.Configure(simChannel) },
		},
		{
			name: "sleep while receiving",
			prep: func(s *Sim) { _ = s.StartReceive() },
			call: func(s *Sim) error { return s.Sleep() },
		},
		{
			name: "wake while idle",
			prep: func(s *Sim) {},
			call: func(s *Sim) error { return s.Wake() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := configuredSim(t)
			tt.prep(s)
			before := s.State()
			err := tt.call(s)
			if !radio.IsKind(err, radio.KindInvalidState) {
				t.Errorf("kind = %v, want KindInvalidState", radio.KindOf(err))
			}
			if got := s.State(); got != before {
				t.Errorf("state changed from %v to %v on rejected call", before, got)
			}
		})
	}
}

func TestSimTxPolls(t *testing.T) {
	s := configuredSim(t)
	s.TxPolls = 3

	if err := s.StartTransmit([]byte{1}); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		done, err := s.CheckTransmit()
		if err != nil {
			t.Fatalf("CheckTransmit() %d error = %v", i+1, err)
		}
		if done {
			t.Fatalf("CheckTransmit() %d done early", i+1)
		}
	}
	done, err := s.CheckTransmit()
	if err != nil || !done {
		t.Errorf("final CheckTransmit() = %v, %v, want true, nil", done, err)
	}
}

func TestSimLoopback(t *testing.T) {
	s := configuredSim(t)
	s.Loopback = true

	if err := s.StartTransmit([]byte("ping")); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	if _, err := s.CheckTransmit(); err != nil {
		t.Fatalf("CheckTransmit() error = %v", err)
	}

	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	payload, _, done, err := s.CheckReceive()
	if err != nil || !done {
		t.Fatalf("CheckReceive() = done %v, err %v", done, err)
	}
	if string(payload) != "ping" {
		t.Errorf("looped payload = %q, want ping", payload)
	}
}

func TestSimErrorParksRadio(t *testing.T) {
	s := configuredSim(t)
	s.CheckTransmitErr = radio.DeviceError("check transmit", 5)

	if err := s.StartTransmit([]byte{1}); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	if _, err := s.CheckTransmit(); !radio.IsKind(err, radio.KindDevice) {
		t.Fatalf("CheckTransmit kind = %v, want KindDevice", radio.KindOf(err))
	}
	if got := s.State(); got != radio.StateError {
		t.Fatalf("state = %v, want error", got)
	}

	// Everything except Configure is rejected from the error state.
	if err := s.StartTransmit([]byte{1}); !radio.IsKind(err, radio.KindInvalidState) {
		t.Errorf("StartTransmit from error state kind = %v, want KindInvalidState", radio.KindOf(err))
	}
	if err := s.Sleep(); !radio.IsKind(err, radio.KindInvalidState) {
		t.Errorf("Sleep from error state kind = %v, want KindInvalidState", radio.KindOf(err))
	}

	// Configure is the reset path.
	if err := s.Configure(simChannel); err != nil {
		t.Fatalf("Configure() after error = %v, want nil", err)
	}
	if got := s.State(); got != radio.StateIdle {
		t.Errorf("state after reconfigure = %v, want idle", got)
	}
	if err := s.StartTransmit([]byte{1}); err != nil {
		t.Errorf("StartTransmit() after recovery = %v, want nil", err)
	}
}

func TestSimInjectedErrorsAreOneShot(t *testing.T) {
	s := configuredSim(t)
	s.StartReceiveErr = radio.Errorf(radio.KindReceive, "start receive", "synth fault")

	if err := s.StartReceive(); !radio.IsKind(err, radio.KindReceive) {
		t.Fatalf("kind = %v, want KindReceive", radio.KindOf(err))
	}
	if err := s.Configure(simChannel); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := s.StartReceive(); err != nil {
		t.Errorf("second StartReceive() = %v, want nil after error consumed", err)
	}
}

func TestSimConfigureRejectsInvalidChannel(t *testing.T) {
	s := NewSim()

	err := s.Configure(radio.Channel{BandwidthHz: 125_000})
	if !radio.IsKind(err, radio.KindConfiguration) {
		t.Fatalf("kind = %v, want KindConfiguration", radio.KindOf(err))
	}
	// Still unconfigured: transmit stays rejected.
	if err := s.StartTransmit([]byte{1}); !radio.IsKind(err, radio.KindConfiguration) {
		t.Errorf("StartTransmit kind = %v, want KindConfiguration", radio.KindOf(err))
	}
}

func TestSimConfigureKeepsPreviousChannelOnReject(t *testing.T) {
	s := configuredSim(t)

	if err := s.Configure(radio.Channel{}); err == nil {
		t.Fatal("Configure() accepted a zero channel")
	}
	if got := s.Channel(); got != simChannel {
		t.Errorf("Channel() = %v, want previous %v", got, simChannel)
	}
	if err := s.StartTransmit([]byte{1}); err != nil {
		t.Errorf("StartTransmit() after rejected reconfigure = %v, want nil", err)
	}
}

func TestSimSleepWake(t *testing.T) {
	s := configuredSim(t)

	if err := s.Sleep(); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if got := s.State(); got != radio.StateSleeping {
		t.Errorf("state = %v, want sleeping", got)
	}
	if err := s.StartTransmit([]byte{1}); !radio.IsKind(err, radio.KindInvalidState) {
		t.Errorf("StartTransmit while sleeping kind = %v, want KindInvalidState", radio.KindOf(err))
	}
	if err := s.Wake(); err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if got := s.State(); got != radio.StateIdle {
		t.Errorf("state after wake = %v, want idle", got)
	}
}

func TestSimMaxPayload(t *testing.T) {
	s := configuredSim(t)

	big := make([]byte, 256)
	err := s.StartTransmit(big)
	if !radio.IsKind(err, radio.KindTransmit) {
		t.Errorf("kind = %v, want KindTransmit", radio.KindOf(err))
	}
	if got := s.State(); got != radio.StateIdle {
		t.Errorf("state = %v, want idle after rejected oversize payload", got)
	}

	if err := s.StartTransmit(make([]byte, 255)); err != nil {
		t.Errorf("StartTransmit() at limit = %v, want nil", err)
	}
}

func TestSimReadRSSI(t *testing.T) {
	s := configuredSim(t)
	s.RSSI = -72

	if _, err := s.ReadRSSI(); !radio.IsKind(err, radio.KindInvalidState) {
		t.Errorf("ReadRSSI while idle kind = %v, want KindInvalidState", radio.KindOf(err))
	}

	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	rssi, err := s.ReadRSSI()
	if err != nil {
		t.Fatalf("ReadRSSI() error = %v", err)
	}
	if rssi != -72 {
		t.Errorf("ReadRSSI() = %d, want -72", rssi)
	}
}

func TestSimReceiveTimestamp(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s := configuredSim(t)
	s.Now = func() time.Time { return fixed }
	s.EnqueueReceive([]byte{0x01})

	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	_, info, done, err := s.CheckReceive()
	if err != nil || !done {
		t.Fatalf("CheckReceive() = done %v, err %v", done, err)
	}
	if !info.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", info.Timestamp, fixed)
	}
}

func TestSimReceivePendingWhenQueueEmpty(t *testing.T) {
	s := configuredSim(t)

	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	_, _, done, err := s.CheckReceive()
	if err != nil {
		t.Fatalf("CheckReceive() error = %v", err)
	}
	if done {
		t.Error("CheckReceive() done = true with empty queue")
	}
	if got := s.State(); got != radio.StateReceiving {
		t.Errorf("state = %v, want still receiving", got)
	}
}

func TestSimReset(t *testing.T) {
	s := configuredSim(t)
	s.EnqueueReceive([]byte{1})
	s.CheckReceiveErr = radio.DeviceError("check receive", 1)

	s.Reset()

	if got := s.State(); got != radio.StateIdle {
		t.Errorf("state = %v, want idle after reset", got)
	}
	if err := s.StartReceive(); !radio.IsKind(err, radio.KindConfiguration) {
		t.Errorf("kind = %v, want KindConfiguration after reset cleared config", radio.KindOf(err))
	}
	if s.CheckReceiveErr != nil {
		t.Error("injected error survived reset")
	}
	if len(s.Sent()) != 0 {
		t.Error("sent history survived reset")
	}
}

func TestSimRxWindowExpiry(t *testing.T) {
	s := configuredSim(t)
	s.RxWindow = 3
	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		_, _, done, err := s.CheckReceive()
		if done || err != nil {
			t.Fatalf("poll %d: CheckReceive() = %v, %v, want pending", i, done, err)
		}
	}
	_, _, done, err := s.CheckReceive()
	if done {
		t.Error("done = true at window expiry")
	}
	if radio.KindOf(err) != radio.KindTimeout {
		t.Errorf("CheckReceive() error = %v, want timeout kind", err)
	}
	if got := s.State(); got != radio.StateIdle {
		t.Errorf("State() = %v, want idle after expiry", got)
	}

	// Each window gets the full poll budget, and a queued packet is
	// delivered regardless of how late in the window it arrives.
	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, _, done, err := s.CheckReceive(); done || err != nil {
			t.Fatalf("second window poll %d: CheckReceive() = %v, %v", i, done, err)
		}
	}
	s.EnqueueReceive([]byte{1})
	if _, _, done, err := s.CheckReceive(); !done || err != nil {
		t.Errorf("CheckReceive() = %v, %v, want delivery on the last poll", done, err)
	}
}
