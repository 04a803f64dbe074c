package capture

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// linkTypeIEEE802154 is DLT 195, IEEE 802.15.4 with FCS. Wireshark
// dissects payloads written under it as 802.15.4 frames.
const linkTypeIEEE802154 = layers.LinkType(195)

// Interface names inside the pcapng section. Direction is encoded by which
// interface a packet is attributed to, since the pcap format itself has no
// direction field.
const (
	TxInterfaceName = "radio-tx"
	RxInterfaceName = "radio-rx"
)

// PcapSink writes records as a pcapng stream with one capture interface per
// direction. The stream is buffered; call Flush before reading the
// underlying writer and after the last record.
type PcapSink struct {
	mu sync.Mutex
	w  *pcapgo.NgWriter
}

// compile-time checks keep the sink implementations honest
var (
	_ Sink = (*PcapSink)(nil)
	_ Sink = (*MemorySink)(nil)
)

// NewPcapSink starts a pcapng section on w and registers the two direction
// interfaces.
func NewPcapSink(w io.Writer) (*PcapSink, error) {
	tx := pcapgo.NgInterface{
		Name:     TxInterfaceName,
		LinkType: linkTypeIEEE802154,
	}
	ngw, err := pcapgo.NewNgWriterInterface(w, tx, pcapgo.NgWriterOptions{
		SectionInfo: pcapgo.NgSectionInfo{Application: "radiohal"},
	})
	if err != nil {
		return nil, fmt.Errorf("pcapng section: %w", err)
	}
	rx := pcapgo.NgInterface{
		Name:     RxInterfaceName,
		LinkType: linkTypeIEEE802154,
	}
	if _, err := ngw.AddInterface(rx); err != nil {
		return nil, fmt.Errorf("pcapng rx interface: %w", err)
	}
	return &PcapSink{w: ngw}, nil
}

// WriteRecord implements Sink.
func (s *PcapSink) WriteRecord(rec Record) error {
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ci := gopacket.CaptureInfo{
		Timestamp:      ts,
		CaptureLength:  len(rec.Payload),
		Length:         len(rec.Payload),
		InterfaceIndex: interfaceIndex(rec.Direction),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.WritePacket(ci, rec.Payload); err != nil {
		return fmt.Errorf("pcapng write: %w", err)
	}
	return nil
}

// Flush drains buffered blocks to the underlying writer.
func (s *PcapSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func interfaceIndex(d Direction) int {
	if d == Received {
		return 1
	}
	return 0
}

// DirectionOfInterface maps a pcapng interface name written by PcapSink
// back to the capture direction. Readers use it to recover what the format
// cannot carry directly.
func DirectionOfInterface(name string) (Direction, bool) {
	switch name {
	case TxInterfaceName:
		return Sent, true
	case RxInterfaceName:
		return Received, true
	default:
		return 0, false
	}
}
