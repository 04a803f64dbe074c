// Package radiotest provides test doubles for the radio contract.
//
// Mock is a strictly scripted double: the test enumerates the exact calls it
// expects, in order, with the values each should return. Any deviation, an
// out-of-order call, an unexpected call, a wrong argument, fails the test
// immediately. Sim is the opposite trade: a small in-memory transceiver with
// the full state machine, for tests that care about behavior rather than
// call sequences.
package radiotest

import (
	"bytes"
	"sync"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/radiohal/radio"
)

// TB is the subset of testing.TB the doubles report through. Using the
// subset keeps radiotest importable from non-test binaries without linking
// the testing flag machinery.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Cleanup(func())
}

// Operation names as they appear in failure messages.
const (
	opState         = "State"
	opConfigure     = "Configure"
	opStartTransmit = "StartTransmit"
	opCheckTransmit = "CheckTransmit"
	opStartReceive  = "StartReceive"
	opCheckReceive  = "CheckReceive"
	opReadRSSI      = "ReadRSSI"
	opSleep         = "Sleep"
	opWake          = "Wake"
)

// Expectation is one scripted call: the operation the radio under test must
// invoke next, the arguments it must pass, and the values to hand back.
// Build them with the package-level constructors.
type Expectation struct {
	op      string
	channel radio.Channel
	payload []byte
	state   radio.State
	info    radio.PacketInfo
	done    bool
	rssi    int16
	err     error
}

// State expects a State call and returns s.
func State(s radio.State) Expectation {
	return Expectation{op: opState, state: s}
}

// Configure expects Configure with exactly ch and returns err.
func Configure(ch radio.Channel, err error) Expectation {
	return Expectation{op: opConfigure, channel: ch, err: err}
}

// StartTransmit expects StartTransmit with exactly payload and returns err.
func StartTransmit(payload []byte, err error) Expectation {
	return Expectation{op: opStartTransmit, payload: append([]byte(nil), payload...), err: err}
}

// CheckTransmit expects a CheckTransmit poll and returns (done, err).
func CheckTransmit(done bool, err error) Expectation {
	return Expectation{op: opCheckTransmit, done: done, err: err}
}

// StartReceive expects StartReceive and returns err.
func StartReceive(err error) Expectation {
	return Expectation{op: opStartReceive, err: err}
}

// CheckReceive expects a CheckReceive poll and returns the full result.
func CheckReceive(payload []byte, info radio.PacketInfo, done bool, err error) Expectation {
	return Expectation{op: opCheckReceive, payload: append([]byte(nil), payload...), info: info, done: done, err: err}
}

// ReadRSSI expects ReadRSSI and returns (rssi, err).
func ReadRSSI(rssi int16, err error) Expectation {
	return Expectation{op: opReadRSSI, rssi: rssi, err: err}
}

// Sleep expects Sleep and returns err.
func Sleep(err error) Expectation {
	return Expectation{op: opSleep, err: err}
}

// Wake expects Wake and returns err.
func Wake(err error) Expectation {
	return Expectation{op: opWake, err: err}
}

// Mock is a transceiver that answers from a fixed script of Expectations.
// It implements every capability interface in package radio.
type Mock struct {
	tb TB

	mu      sync.Mutex
	script  []Expectation
	calls   int
	checked bool
}

var (
	_ radio.Transceiver = (*Mock)(nil)
	_ radio.SignalMeter = (*Mock)(nil)
	_ radio.Sleeper     = (*Mock)(nil)
)

// NewMock builds a Mock that will serve script in order. Done is registered
// as a cleanup, so forgetting to consume the whole script fails the test
// even without an explicit Done call.
func NewMock(tb TB, script ...Expectation) *Mock {
	tb.Helper()
	m := &Mock{tb: tb, script: append([]Expectation(nil), script...)}
	tb.Cleanup(m.Done)
	return m
}

// Done asserts the whole script was consumed. Calling it more than once is
// harmless; only the first call reports.
func (m *Mock) Done() {
	m.tb.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checked {
		return
	}
	m.checked = true
	if len(m.script) > 0 {
		m.tb.Errorf("radiotest: %d scripted calls never made, next is %s", len(m.script), m.script[0].op)
	}
}

// next pops the head of the script, failing the test if the script is
// exhausted or the head names a different operation.
func (m *Mock) next(op string) Expectation {
	m.tb.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.script) == 0 {
		m.tb.Fatalf("radiotest: call %d: unexpected %s, script exhausted", m.calls, op)
		return Expectation{op: op}
	}
	e := m.script[0]
	m.script = m.script[1:]
	if e.op != op {
		m.tb.Fatalf("radiotest: call %d: got %s, script expects %s", m.calls, op, e.op)
	}
	return e
}

// State implements radio.StateReader.
func (m *Mock) State() radio.State {
	m.tb.Helper()
	e := m.next(opState)
	return e.state
}

// Configure implements radio.Configurer.
func (m *Mock) Configure(ch radio.Channel) error {
	m.tb.Helper()
	e := m.next(opConfigure)
	if diff := cmp.Diff(e.channel, ch); diff != "" {
		m.tb.Fatalf("radiotest: call %d: Configure channel mismatch (-want +got):\n%s", m.callCount(), diff)
	}
	return e.err
}

// StartTransmit implements radio.Transmitter.
func (m *Mock) StartTransmit(payload []byte) error {
	m.tb.Helper()
	e := m.next(opStartTransmit)
	if !bytes.Equal(e.payload, payload) {
		m.tb.Fatalf("radiotest: call %d: StartTransmit payload = %x, script expects %x", m.callCount(), payload, e.payload)
	}
	return e.err
}

// CheckTransmit implements radio.Transmitter.
func (m *Mock) CheckTransmit() (bool, error) {
	m.tb.Helper()
	e := m.next(opCheckTransmit)
	return e.done, e.err
}

// StartReceive implements radio.Receiver.
func (m *Mock) StartReceive() error {
	m.tb.Helper()
	e := m.next(opStartReceive)
	return e.err
}

// CheckReceive implements radio.Receiver.
func (m *Mock) CheckReceive() ([]byte, radio.PacketInfo, bool, error) {
	m.tb.Helper()
	e := m.next(opCheckReceive)
	return append([]byte(nil), e.payload...), e.info, e.done, e.err
}

// ReadRSSI implements radio.SignalMeter.
func (m *Mock) ReadRSSI() (int16, error) {
	m.tb.Helper()
	e := m.next(opReadRSSI)
	return e.rssi, e.err
}

// Sleep implements radio.Sleeper.
func (m *Mock) Sleep() error {
	m.tb.Helper()
	e := m.next(opSleep)
	return e.err
}

// Wake implements radio.Sleeper.
func (m *Mock) Wake() error {
	m.tb.Helper()
	e := m.next(opWake)
	return e.err
}

func (m *Mock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
