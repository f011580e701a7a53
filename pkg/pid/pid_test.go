package pid

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		key  string
		data []byte
		want float64
		unit string
	}{
		{key: "rpm", data: []byte{0x0C, 0x94}, want: 805, unit: "rpm"},
		{key: "speed", data: []byte{0x37}, want: 55, unit: "km/h"},
		{key: "coolant_temp", data: []byte{0x8C}, want: 100, unit: "°C"},
		{key: "engine_load", data: []byte{0xFF}, want: 100, unit: "%"},
		{key: "stft_bank1", data: []byte{0x80}, want: 0, unit: "%"},
		{key: "timing_adv", data: []byte{0x80}, want: 0, unit: "° before TDC"},
		{key: "maf", data: []byte{0x3A, 0x98}, want: 150, unit: "g/s"},
		{key: "volt_module", data: []byte{0x32, 0xC8}, want: 13, unit: "V"},
		{key: "o2_s1_bank1", data: []byte{0x64, 0x80}, want: 0.5, unit: "V"},
		{key: "cmd_air_fuel", data: []byte{0x80, 0x00}, want: 1, unit: "ratio"},
		{key: "run_time", data: []byte{0x01, 0x2C}, want: 300, unit: "s"},
		{key: "monitor_status", data: []byte{0x00, 0x00, 0x01, 0x00}, want: 256, unit: "bit encoded"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			entry, err := Lookup(tt.key)
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.key, err)
			}
			got, err := entry.Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Value != tt.want {
				t.Errorf("Decode() = %v, want %v", got.Value, tt.want)
			}
			if got.Unit != tt.unit {
				t.Errorf("Decode() unit = %q, want %q", got.Unit, tt.unit)
			}
		})
	}
}

func TestDecodeRPMFromResponsePayload(t *testing.T) {
	// response 41 0C 0C 94: the two bytes after mode and PID echo
	payload := []byte{0x41, 0x0C, 0x0C, 0x94, 0xAA, 0xAA}
	entry, err := Lookup("rpm")
	if err != nil {
		t.Fatal(err)
	}
	got, err := entry.Decode(payload[2:])
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != 805.0 {
		t.Errorf("rpm = %v, want 805.0", got.Value)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("flux_capacitor"); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("Lookup() error = %v, want ErrUnknownParameter", err)
	}
}

func TestDecodeShortPayload(t *testing.T) {
	entry, err := Lookup("rpm")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.Decode([]byte{0x0C}); !errors.Is(err, ErrShortPayload) {
		t.Errorf("Decode() error = %v, want ErrShortPayload", err)
	}
}

func TestKeysCoverRegistry(t *testing.T) {
	keys := Keys()
	if len(keys) != len(entries) {
		t.Fatalf("Keys() returned %d keys, registry has %d entries", len(keys), len(entries))
	}
	for _, k := range keys {
		if _, err := Lookup(k); err != nil {
			t.Errorf("Lookup(%q) error = %v", k, err)
		}
	}
}
