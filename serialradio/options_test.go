package serialradio

import (
	"strings"
	"testing"

	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if opts.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", opts.BaudRate)
	}
	if opts.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", opts.DataBits)
	}
	if opts.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", opts.StopBits)
	}
	if opts.Parity != "N" {
		t.Errorf("Parity = %q, want N", opts.Parity)
	}
}

func TestPortOptionsNormalizeExplicit(t *testing.T) {
	in := PortOptions{BaudRate: 921600, DataBits: 7, StopBits: 2, Parity: "even"}
	opts, err := in.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := PortOptions{BaudRate: 921600, DataBits: 7, StopBits: 2, Parity: "E"}
	if opts != want {
		t.Errorf("Normalize() = %+v, want %+v", opts, want)
	}
}

func TestPortOptionsNormalizeParity(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "N", false},
		{"n", "N", false},
		{"none", "N", false},
		{"NONE", "N", false},
		{"e", "E", false},
		{"EVEN", "E", false},
		{"o", "O", false},
		{"odd", "O", false},
		{" E ", "E", false},
		{"mark", "", true},
		{"X", "", true},
	}
	for _, tt := range tests {
		opts, err := PortOptions{Parity: tt.in}.Normalize()
		if tt.wantErr {
			if err == nil {
				t.Errorf("Normalize(parity %q) error = nil, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(parity %q) error = %v", tt.in, err)
			continue
		}
		if opts.Parity != tt.want {
			t.Errorf("Normalize(parity %q) = %q, want %q", tt.in, opts.Parity, tt.want)
		}
	}
}

func TestPortOptionsNormalizeDataBits(t *testing.T) {
	for _, bits := range []int{5, 6, 7, 8} {
		if _, err := (PortOptions{DataBits: bits}).Normalize(); err != nil {
			t.Errorf("Normalize(data bits %d) error = %v", bits, err)
		}
	}
	for _, bits := range []int{4, 9, -1} {
		_, err := (PortOptions{DataBits: bits}).Normalize()
		if err == nil {
			t.Errorf("Normalize(data bits %d) error = nil, want error", bits)
		} else if !strings.Contains(err.Error(), "data bits") {
			t.Errorf("Normalize(data bits %d) error = %v, want mention of data bits", bits, err)
		}
	}
}

func TestPortOptionsNormalizeStopBits(t *testing.T) {
	if _, err := (PortOptions{StopBits: 3}).Normalize(); err == nil {
		t.Error("Normalize(stop bits 3) error = nil, want error")
	}
	if _, err := (PortOptions{StopBits: 2}).Normalize(); err != nil {
		t.Errorf("Normalize(stop bits 2) error = %v", err)
	}
}

func TestPortOptionsSerialMode(t *testing.T) {
	tests := []struct {
		name string
		in   PortOptions
		want serial.Mode
	}{
		{
			name: "defaults",
			in:   PortOptions{},
			want: serial.Mode{BaudRate: 115200, DataBits: 8, StopBits: serial.OneStopBit, Parity: serial.NoParity},
		},
		{
			name: "even parity",
			in:   PortOptions{BaudRate: 57600, Parity: "even"},
			want: serial.Mode{BaudRate: 57600, DataBits: 8, StopBits: serial.OneStopBit, Parity: serial.EvenParity},
		},
		{
			name: "odd parity two stop bits",
			in:   PortOptions{StopBits: 2, Parity: "O"},
			want: serial.Mode{BaudRate: 115200, DataBits: 8, StopBits: serial.TwoStopBits, Parity: serial.OddParity},
		},
	}
	for _, tt := range tests {
		mode, err := tt.in.SerialMode()
		if err != nil {
			t.Errorf("%s: SerialMode() error = %v", tt.name, err)
			continue
		}
		if *mode != tt.want {
			t.Errorf("%s: SerialMode() = %+v, want %+v", tt.name, *mode, tt.want)
		}
	}
}

func TestPortOptionsSerialModeInvalid(t *testing.T) {
	if _, err := (PortOptions{Parity: "space"}).SerialMode(); err == nil {
		t.Error("SerialMode() error = nil for unsupported parity")
	}
	if _, err := (PortOptions{DataBits: 12}).SerialMode(); err == nil {
		t.Error("SerialMode() error = nil for invalid data bits")
	}
}
