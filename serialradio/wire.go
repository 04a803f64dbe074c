package serialradio

import (
	"bytes"
	"encoding/binary"

	"github.com/banshee-data/radiohal/radio"
)

// Wire framing for the UART modem protocol. Every frame is
//
//	SOF (0xA5) | type (1) | length (1) | payload (length) | checksum (1)
//
// where the checksum is the XOR of type, length and payload bytes. The
// host sends command frames; the modem answers with event frames, which
// have the high bit of the type set.
const sof = 0xA5

// Command frame types, host to modem.
const (
	cmdConfigure byte = 0x01 // payload: channel encoding, 11 bytes
	cmdTxStart   byte = 0x02 // payload: the packet to send
	cmdRxStart   byte = 0x03
	cmdReadRSSI  byte = 0x04
	cmdSleep     byte = 0x05
	cmdWake      byte = 0x06
)

// Event frame types, modem to host.
const (
	evtAck       byte = 0x81 // payload: status byte, 0 accepted
	evtTxDone    byte = 0x82
	evtRxPacket  byte = 0x83 // payload: rssi int16 BE, lqi byte, packet
	evtRSSI      byte = 0x84 // payload: rssi int16 BE
	evtFault     byte = 0x85 // payload: device fault code
	evtRxTimeout byte = 0x86 // receive window expired
)

// ackAccepted is the status byte of a positive acknowledgement;
// ackBadConfig rejects a channel the hardware cannot synthesize. Any other
// status is a device-specific rejection code.
const (
	ackAccepted  byte = 0x00
	ackBadConfig byte = 0x01
)

// maxFrame bounds one encoded frame: header, a full-length payload and the
// checksum.
const maxFrame = 3 + 255 + 1

type frame struct {
	typ     byte
	payload []byte
}

func checksum(typ byte, payload []byte) byte {
	c := typ ^ byte(len(payload))
	for _, b := range payload {
		c ^= b
	}
	return c
}

// encodeFrame builds one wire frame. Payloads longer than 255 bytes do not
// fit the length byte; callers enforce the limit before encoding.
func encodeFrame(typ byte, payload []byte) []byte {
	out := make([]byte, 0, 4+len(payload))
	out = append(out, sof, typ, byte(len(payload)))
	out = append(out, payload...)
	out = append(out, checksum(typ, payload))
	return out
}

// encodeChannel packs a channel for cmdConfigure: frequency and bandwidth
// as uint32, power as a signed byte, index as uint16, all big endian.
func encodeChannel(ch radio.Channel) []byte {
	out := make([]byte, 11)
	binary.BigEndian.PutUint32(out[0:4], ch.FrequencyHz)
	binary.BigEndian.PutUint32(out[4:8], ch.BandwidthHz)
	out[8] = byte(ch.PowerDBm)
	binary.BigEndian.PutUint16(out[9:11], ch.Index)
	return out
}

// decoder extracts frames from a raw byte stream. Feed appends whatever the
// port produced; next pulls out the earliest complete valid frame. Noise is
// tolerated: bytes before a start-of-frame are discarded, and a frame whose
// checksum fails is abandoned by rescanning from the byte after its SOF, so
// a frame start hiding inside corrupt data is still found.
type decoder struct {
	buf []byte
}

// maxDecoderBuf caps the unparsed backlog. A backlog this size with no
// extractable frame is line garbage, not a slow frame.
const maxDecoderBuf = 16 * maxFrame

func (d *decoder) feed(p []byte) {
	d.buf = append(d.buf, p...)
	if len(d.buf) > maxDecoderBuf {
		d.buf = d.buf[len(d.buf)-maxDecoderBuf:]
	}
}

func (d *decoder) next() (frame, bool) {
	for {
		i := bytes.IndexByte(d.buf, sof)
		if i < 0 {
			d.buf = d.buf[:0]
			return frame{}, false
		}
		d.buf = d.buf[i:]
		if len(d.buf) < 3 {
			return frame{}, false
		}
		n := int(d.buf[2])
		total := 3 + n + 1
		if len(d.buf) < total {
			return frame{}, false
		}
		typ := d.buf[1]
		payload := d.buf[3 : 3+n]
		if checksum(typ, payload) != d.buf[total-1] {
			d.buf = d.buf[1:]
			continue
		}
		f := frame{typ: typ, payload: append([]byte(nil), payload...)}
		d.buf = d.buf[total:]
		return f, true
	}
}
