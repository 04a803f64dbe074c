package capture

import (
	"sync"
	"time"

	"github.com/banshee-data/radiohal/radio"
)

// Radio decorates a transmitter/receiver with capture and statistics. Every
// call is forwarded to the wrapped radio first; a Record is written to the
// sink only after the wrapped operation reports completion, so the capture
// holds no packet that never made it over the air.
//
// A sink failure after a successful radio operation does not undo the
// operation: the call still reports completion, alongside a KindIO error
// that flags the capture gap. Radio failures are forwarded unchanged and
// nothing is written for them.
type Radio[T radio.TransmitReceiver] struct {
	// Now supplies timestamps for transmit records. Nil uses time.Now.
	// Set before first use.
	Now func() time.Time

	inner T
	sink  Sink

	mu        sync.Mutex
	txPending []byte
	txPackets uint64
	txBytes   uint64
	txErrors  uint64
	rxPackets uint64
	rxBytes   uint64
	rxErrors  uint64
	sinkErrs  uint64
	rssi      RollingStats
	lqi       RollingStats
}

// Wrap decorates inner with capture into sink.
func Wrap[T radio.TransmitReceiver](inner T, sink Sink) *Radio[T] {
	return &Radio[T]{inner: inner, sink: sink}
}

// Inner returns the wrapped radio, for capabilities the wrapper does not
// forward, such as Configure.
func (r *Radio[T]) Inner() T { return r.inner }

// StartTransmit implements radio.Transmitter.
func (r *Radio[T]) StartTransmit(payload []byte) error {
	if err := r.inner.StartTransmit(payload); err != nil {
		r.mu.Lock()
		r.txErrors++
		r.mu.Unlock()
		return err
	}
	r.mu.Lock()
	r.txPending = append([]byte(nil), payload...)
	r.mu.Unlock()
	return nil
}

// CheckTransmit implements radio.Transmitter. On completion the transmitted
// payload is recorded as a Sent packet.
func (r *Radio[T]) CheckTransmit() (bool, error) {
	done, err := r.inner.CheckTransmit()
	if err != nil {
		r.mu.Lock()
		r.txErrors++
		r.txPending = nil
		r.mu.Unlock()
		return done, err
	}
	if !done {
		return false, nil
	}

	r.mu.Lock()
	payload := r.txPending
	r.txPending = nil
	r.txPackets++
	r.txBytes += uint64(len(payload))
	r.mu.Unlock()

	rec := Record{
		Direction: Sent,
		Time:      r.now(),
		Payload:   payload,
		Info:      radio.PacketInfo{Length: len(payload)},
	}
	if sinkErr := r.sink.WriteRecord(rec); sinkErr != nil {
		r.mu.Lock()
		r.sinkErrs++
		r.mu.Unlock()
		return true, radio.Errorf(radio.KindIO, "capture transmit", "sink: %w", sinkErr)
	}
	return true, nil
}

// StartReceive implements radio.Receiver.
func (r *Radio[T]) StartReceive() error {
	if err := r.inner.StartReceive(); err != nil {
		r.mu.Lock()
		r.rxErrors++
		r.mu.Unlock()
		return err
	}
	return nil
}

// CheckReceive implements radio.Receiver. On completion the received packet
// is recorded and its telemetry folded into the signal summaries.
func (r *Radio[T]) CheckReceive() ([]byte, radio.PacketInfo, bool, error) {
	payload, info, done, err := r.inner.CheckReceive()
	if err != nil {
		r.mu.Lock()
		r.rxErrors++
		r.mu.Unlock()
		return payload, info, done, err
	}
	if !done {
		return nil, radio.PacketInfo{}, false, nil
	}

	r.mu.Lock()
	r.rxPackets++
	r.rxBytes += uint64(len(payload))
	r.rssi.Update(float64(info.RSSI))
	r.lqi.Update(float64(info.LQI))
	r.mu.Unlock()

	ts := info.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	rec := Record{
		Direction: Received,
		Time:      ts,
		Payload:   payload,
		Info:      info,
	}
	if sinkErr := r.sink.WriteRecord(rec); sinkErr != nil {
		r.mu.Lock()
		r.sinkErrs++
		r.mu.Unlock()
		return payload, info, true, radio.Errorf(radio.KindIO, "capture receive", "sink: %w", sinkErr)
	}
	return payload, info, true, nil
}

// Stats returns a snapshot of the counters and signal summaries.
func (r *Radio[T]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		TxPackets:  r.txPackets,
		TxBytes:    r.txBytes,
		TxErrors:   r.txErrors,
		RxPackets:  r.rxPackets,
		RxBytes:    r.rxBytes,
		RxErrors:   r.rxErrors,
		SinkErrors: r.sinkErrs,
		RSSI:       r.rssi.Summary(),
		LQI:        r.lqi.Summary(),
	}
}

func (r *Radio[T]) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
