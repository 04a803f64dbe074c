package radio

import "testing"

func TestChannelValidate(t *testing.T) {
	tests := []struct {
		name    string
		ch      Channel
		wantErr bool
	}{
		{
			name:    "valid 868 MHz channel",
			ch:      Channel{FrequencyHz: 868_300_000, BandwidthHz: 125_000, PowerDBm: 14},
			wantErr: false,
		},
		{
			name:    "valid with index only frequency",
			ch:      Channel{FrequencyHz: 2_405_000_000, Index: 11},
			wantErr: false,
		},
		{
			name:    "zero frequency rejected",
			ch:      Channel{BandwidthHz: 125_000, PowerDBm: 14},
			wantErr: true,
		},
		{
			name:    "zero value rejected",
			ch:      Channel{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ch.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsKind(err, KindConfiguration) {
				t.Errorf("Validate() kind = %v, want KindConfiguration", KindOf(err))
			}
		})
	}
}

func TestChannelString(t *testing.T) {
	ch := Channel{FrequencyHz: 868_300_000, BandwidthHz: 125_000, PowerDBm: 14, Index: 2}
	want := "868.300 MHz bw 125000 Hz +14 dBm index 2"
	if got := ch.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	neg := Channel{FrequencyHz: 433_920_000, BandwidthHz: 250_000, PowerDBm: -3}
	want = "433.920 MHz bw 250000 Hz -3 dBm index 0"
	if got := neg.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConfiguring, "configuring"},
		{StateTransmitting, "transmitting"},
		{StateReceiving, "receiving"},
		{StateSleeping, "sleeping"},
		{StateError, "error"},
		{State(200), "state(200)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
