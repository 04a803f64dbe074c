// Package capture adds packet capture and link statistics to any radio.
//
// Wrap decorates a transmitter/receiver pair: every operation is forwarded
// to the wrapped radio unchanged, and each completed transmission or
// reception is mirrored as a Record into a Sink. Only completed operations
// are recorded, so a capture file holds exactly the packets that actually
// crossed the air interface. PcapSink writes records as a pcapng stream that
// Wireshark opens directly; MemorySink collects them for tests; a tracedb
// Session persists them to SQLite.
package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/radiohal/radio"
)

// Direction distinguishes the two halves of a capture.
type Direction uint8

const (
	// Sent marks a packet this radio transmitted.
	Sent Direction = iota
	// Received marks a packet this radio received.
	Received
)

func (d Direction) String() string {
	switch d {
	case Sent:
		return "sent"
	case Received:
		return "received"
	default:
		return "direction(?)"
	}
}

// Record is one captured packet. Received records carry the telemetry the
// driver reported; Sent records have a zero Info apart from the length.
type Record struct {
	Direction Direction
	Time      time.Time
	Payload   []byte
	Info      radio.PacketInfo
}

// Sink consumes captured packets. Implementations own the passed Record;
// the wrapper never mutates a Record after handing it over.
type Sink interface {
	WriteRecord(rec Record) error
}

// MemorySink is a Sink that accumulates records in memory, for tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record

	// WriteErr is returned by the next WriteRecord call if set, then
	// cleared. The record is not kept.
	WriteErr error
}

// WriteRecord stores a copy of rec.
func (m *MemorySink) WriteRecord(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.WriteErr; err != nil {
		m.WriteErr = nil
		return err
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	m.records = append(m.records, rec)
	return nil
}

// Records returns the captured records, oldest first.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Reset discards all captured records.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

// MultiSink fans every record out to all sinks, like io.MultiWriter. Each
// sink sees every record even when an earlier one fails; the errors are
// joined.
func MultiSink(sinks ...Sink) Sink {
	copied := make([]Sink, len(sinks))
	copy(copied, sinks)
	return multiSink(copied)
}

type multiSink []Sink

func (m multiSink) WriteRecord(rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteRecord(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
