package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/radiohal/radio"
	"github.com/banshee-data/radiohal/radiotest"
)

var wrapChannel = radio.Channel{FrequencyHz: 868_300_000, BandwidthHz: 125_000, PowerDBm: 14}

func wrappedSim(t *testing.T) (*Radio[*radiotest.Sim], *radiotest.Sim, *MemorySink) {
	t.Helper()
	sim := radiotest.NewSim()
	if err := sim.Configure(wrapChannel); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	sink := &MemorySink{}
	return Wrap(sim, sink), sim, sink
}

func TestWrapRecordsCompletedTransmit(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, sim, sink := wrappedSim(t)
	r.Now = func() time.Time { return fixed }
	sim.TxPolls = 2

	if err := r.StartTransmit([]byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	done, err := r.CheckTransmit()
	if err != nil || done {
		t.Fatalf("first CheckTransmit() = %v, %v, want false, nil", done, err)
	}
	if len(sink.Records()) != 0 {
		t.Fatal("record written before transmission completed")
	}

	done, err = r.CheckTransmit()
	if err != nil || !done {
		t.Fatalf("second CheckTransmit() = %v, %v, want true, nil", done, err)
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Direction != Sent {
		t.Errorf("Direction = %v, want Sent", rec.Direction)
	}
	if !bytes.Equal(rec.Payload, []byte{0xaa, 0xbb}) {
		t.Errorf("Payload = %x, want aabb", rec.Payload)
	}
	if !rec.Time.Equal(fixed) {
		t.Errorf("Time = %v, want %v", rec.Time, fixed)
	}
	if rec.Info.Length != 2 {
		t.Errorf("Info.Length = %d, want 2", rec.Info.Length)
	}

	stats := r.Stats()
	if stats.TxPackets != 1 || stats.TxBytes != 2 || stats.TxErrors != 0 {
		t.Errorf("stats = %+v, want 1 packet, 2 bytes, 0 errors", stats)
	}
}

func TestWrapNoRecordOnTransmitFailure(t *testing.T) {
	r, sim, sink := wrappedSim(t)
	sim.CheckTransmitErr = radio.DeviceError("check transmit", 9)

	if err := r.StartTransmit([]byte{1}); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	_, err := r.CheckTransmit()
	if !radio.IsKind(err, radio.KindDevice) {
		t.Fatalf("kind = %v, want KindDevice forwarded unchanged", radio.KindOf(err))
	}

	if len(sink.Records()) != 0 {
		t.Error("failed transmission produced a record")
	}
	stats := r.Stats()
	if stats.TxErrors != 1 || stats.TxPackets != 0 || stats.SinkErrors != 0 {
		t.Errorf("stats = %+v, want only TxErrors 1", stats)
	}
}

func TestWrapStartTransmitRejectionCounted(t *testing.T) {
	sim := radiotest.NewSim() // unconfigured
	sink := &MemorySink{}
	r := Wrap(sim, sink)

	err := r.StartTransmit([]byte{1})
	if !radio.IsKind(err, radio.KindConfiguration) {
		t.Fatalf("kind = %v, want KindConfiguration", radio.KindOf(err))
	}
	if got := r.Stats().TxErrors; got != 1 {
		t.Errorf("TxErrors = %d, want 1", got)
	}
	if len(sink.Records()) != 0 {
		t.Error("rejected start produced a record")
	}
}

func TestWrapRecordsReceive(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)
	r, sim, sink := wrappedSim(t)
	sim.Now = func() time.Time { return fixed }
	sim.RSSI = -66
	sim.LQI = 99
	sim.EnqueueReceive([]byte("pkt"))

	if err := r.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	payload, info, done, err := r.CheckReceive()
	if err != nil || !done {
		t.Fatalf("CheckReceive() = done %v, err %v", done, err)
	}
	if string(payload) != "pkt" {
		t.Errorf("payload = %q, want pkt", payload)
	}
	if info.RSSI != -66 || info.LQI != 99 {
		t.Errorf("info = %+v, want RSSI -66 LQI 99", info)
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Direction != Received {
		t.Errorf("Direction = %v, want Received", recs[0].Direction)
	}
	if !recs[0].Time.Equal(fixed) {
		t.Errorf("record Time = %v, want driver timestamp %v", recs[0].Time, fixed)
	}
	if recs[0].Info.RSSI != -66 {
		t.Errorf("record Info.RSSI = %d, want -66", recs[0].Info.RSSI)
	}

	stats := r.Stats()
	if stats.RxPackets != 1 || stats.RxBytes != 3 {
		t.Errorf("stats = %+v, want 1 packet, 3 bytes", stats)
	}
	if stats.RSSI.Mean != -66 || stats.LQI.Mean != 99 {
		t.Errorf("signal summary = RSSI %+v LQI %+v", stats.RSSI, stats.LQI)
	}
}

func TestWrapPendingReceiveNoRecord(t *testing.T) {
	r, _, sink := wrappedSim(t)

	if err := r.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	_, _, done, err := r.CheckReceive()
	if err != nil || done {
		t.Fatalf("CheckReceive() = done %v, err %v, want false, nil", done, err)
	}
	if len(sink.Records()) != 0 {
		t.Error("pending receive produced a record")
	}
	if got := r.Stats().RxPackets; got != 0 {
		t.Errorf("RxPackets = %d, want 0", got)
	}
}

func TestWrapSinkFailureOnTransmit(t *testing.T) {
	r, _, sink := wrappedSim(t)
	sinkErr := errors.New("disk full")
	sink.WriteErr = sinkErr

	if err := r.StartTransmit([]byte{1, 2, 3}); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	done, err := r.CheckTransmit()
	if !done {
		t.Error("done = false, want true: the transmission itself succeeded")
	}
	if !radio.IsKind(err, radio.KindIO) {
		t.Errorf("kind = %v, want KindIO", radio.KindOf(err))
	}
	if !errors.Is(err, sinkErr) {
		t.Errorf("error chain %v does not carry the sink cause", err)
	}

	stats := r.Stats()
	if stats.TxPackets != 1 {
		t.Errorf("TxPackets = %d, want 1: radio op completed", stats.TxPackets)
	}
	if stats.TxErrors != 0 {
		t.Errorf("TxErrors = %d, want 0: radio op did not fail", stats.TxErrors)
	}
	if stats.SinkErrors != 1 {
		t.Errorf("SinkErrors = %d, want 1", stats.SinkErrors)
	}
}

func TestWrapSinkFailureOnReceive(t *testing.T) {
	r, sim, sink := wrappedSim(t)
	sim.EnqueueReceive([]byte("data"))
	sink.WriteErr = errors.New("pipe closed")

	if err := r.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	payload, _, done, err := r.CheckReceive()
	if !done {
		t.Error("done = false, want true")
	}
	if string(payload) != "data" {
		t.Errorf("payload = %q, want data despite sink failure", payload)
	}
	if !radio.IsKind(err, radio.KindIO) {
		t.Errorf("kind = %v, want KindIO", radio.KindOf(err))
	}
	if got := r.Stats().RxPackets; got != 1 {
		t.Errorf("RxPackets = %d, want 1", got)
	}
}

func TestWrapReceiveFailureKeepsKind(t *testing.T) {
	r, sim, sink := wrappedSim(t)
	want := radio.Errorf(radio.KindTimeout, "check receive", "window expired")
	sim.CheckReceiveErr = want

	if err := r.StartReceive(); err != nil {
		t.Fatalf("StartReceive() error = %v", err)
	}
	_, _, _, err := r.CheckReceive()
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want the driver error unchanged", err)
	}
	if len(sink.Records()) != 0 {
		t.Error("failed receive produced a record")
	}
	stats := r.Stats()
	if stats.RxErrors != 1 || stats.SinkErrors != 0 {
		t.Errorf("stats = %+v, want RxErrors 1, SinkErrors 0", stats)
	}
}

func TestWrapSignalSummaryAcrossPackets(t *testing.T) {
	r, sim, _ := wrappedSim(t)

	for _, rssi := range []int16{-50, -60, -70} {
		sim.RSSI = rssi
		sim.EnqueueReceive([]byte{0x01})
		if err := r.StartReceive(); err != nil {
			t.Fatalf("StartReceive() error = %v", err)
		}
		if _, _, done, err := r.CheckReceive(); err != nil || !done {
			t.Fatalf("CheckReceive() = done %v, err %v", done, err)
		}
	}

	got := r.Stats().RSSI
	if got.Count != 3 || got.Mean != -60 || got.Min != -70 || got.Max != -50 {
		t.Errorf("RSSI summary = %+v, want count 3 mean -60 range -70 to -50", got)
	}
}

func TestWrapInner(t *testing.T) {
	sim := radiotest.NewSim()
	r := Wrap(sim, &MemorySink{})

	if r.Inner() != sim {
		t.Error("Inner() did not return the wrapped radio")
	}

	// Capabilities the wrapper does not forward reach the radio via Inner.
	if err := r.Inner().Configure(wrapChannel); err != nil {
		t.Fatalf("Configure() via Inner error = %v", err)
	}
	if err := r.StartTransmit([]byte{1}); err != nil {
		t.Errorf("StartTransmit() after Inner configure = %v, want nil", err)
	}
}

func TestWrapMultiSinkFanout(t *testing.T) {
	sim := radiotest.NewSim()
	if err := sim.Configure(wrapChannel); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	a, b := &MemorySink{}, &MemorySink{}
	r := Wrap(sim, MultiSink(a, b))

	if err := r.StartTransmit([]byte{0x42}); err != nil {
		t.Fatalf("StartTransmit() error = %v", err)
	}
	if _, err := r.CheckTransmit(); err != nil {
		t.Fatalf("CheckTransmit() error = %v", err)
	}

	if len(a.Records()) != 1 || len(b.Records()) != 1 {
		t.Errorf("records = %d and %d, want 1 in each sink", len(a.Records()), len(b.Records()))
	}
}

func TestWrapMultiSinkPartialFailure(t *testing.T) {
	failing := &MemorySink{WriteErr: errors.New("full")}
	healthy := &MemorySink{}
	ms := MultiSink(failing, healthy)

	err := ms.WriteRecord(Record{Direction: Sent, Payload: []byte{1}})
	if err == nil {
		t.Fatal("WriteRecord() error = nil, want the failing sink's error")
	}
	if len(healthy.Records()) != 1 {
		t.Error("later sink skipped after earlier failure")
	}
}
