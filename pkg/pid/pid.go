package pid

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrShortPayload     = errors.New("payload too short to decode")
)

// Entry describes one parameter in the registry: which PID to request,
// how many payload bytes the decode needs and which formula applies.
type Entry struct {
	Key     string
	PID     byte
	Bytes   int
	Formula Formula
	Unit    string
}

// Value is a decoded reading together with its unit.
type Value struct {
	Value float64
	Unit  string
}

func (v Value) String() string {
	return fmt.Sprintf("%g %s", v.Value, v.Unit)
}

// Decode runs the entry's formula over the payload bytes that follow
// the mode and PID echo of a mode 01/02 response.
func (e Entry) Decode(data []byte) (Value, error) {
	if len(data) < e.Bytes {
		return Value{}, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortPayload, e.Key, e.Bytes, len(data))
	}
	return Value{Value: e.Formula.apply(data[:e.Bytes]), Unit: e.Unit}, nil
}

// Lookup returns the registry entry for key.
func Lookup(key string) (Entry, error) {
	e, ok := registry[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	return e, nil
}

// Keys returns all registry keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// registry is built once at init and never mutated afterwards.
var registry = make(map[string]Entry, len(entries))

func init() {
	for _, e := range entries {
		registry[e.Key] = e
	}
}

var entries = []Entry{
	{Key: "monitor_status", PID: 0x01, Bytes: 4, Formula: Bits, Unit: "bit encoded"},
	{Key: "fuel_status", PID: 0x03, Bytes: 2, Formula: Bits, Unit: "bit encoded"},
	{Key: "engine_load", PID: 0x04, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "coolant_temp", PID: 0x05, Bytes: 1, Formula: TempOffset, Unit: "°C"},
	{Key: "stft_bank1", PID: 0x06, Bytes: 1, Formula: FuelTrim, Unit: "%"},
	{Key: "ltft_bank1", PID: 0x07, Bytes: 1, Formula: FuelTrim, Unit: "%"},
	{Key: "intake_press", PID: 0x0B, Bytes: 1, Formula: UByte, Unit: "kPa"},
	{Key: "rpm", PID: 0x0C, Bytes: 2, Formula: RPM, Unit: "rpm"},
	{Key: "speed", PID: 0x0D, Bytes: 1, Formula: UByte, Unit: "km/h"},
	{Key: "timing_adv", PID: 0x0E, Bytes: 1, Formula: HalfMinus64, Unit: "° before TDC"},
	{Key: "intake_temp", PID: 0x0F, Bytes: 1, Formula: TempOffset, Unit: "°C"},
	{Key: "maf", PID: 0x10, Bytes: 2, Formula: WordDiv100, Unit: "g/s"},
	{Key: "throttle_pos", PID: 0x11, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "o2_sensors", PID: 0x13, Bytes: 1, Formula: Bits, Unit: "bit encoded"},
	{Key: "o2_s1_bank1", PID: 0x14, Bytes: 2, Formula: SensorVolt, Unit: "V"},
	{Key: "o2_s2_bank1", PID: 0x15, Bytes: 2, Formula: SensorVolt, Unit: "V"},
	{Key: "run_time", PID: 0x1F, Bytes: 2, Formula: Word, Unit: "s"},
	{Key: "mil_dist", PID: 0x21, Bytes: 2, Formula: Word, Unit: "km"},
	{Key: "evap_purge", PID: 0x2E, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "fuel_level", PID: 0x2F, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "warm_ups", PID: 0x30, Bytes: 1, Formula: UByte, Unit: "count"},
	{Key: "clr_dist", PID: 0x31, Bytes: 2, Formula: Word, Unit: "km"},
	{Key: "baro_press", PID: 0x33, Bytes: 1, Formula: UByte, Unit: "kPa"},
	{Key: "o2_s1_ratio", PID: 0x34, Bytes: 2, Formula: Ratio, Unit: "ratio"},
	{Key: "time_run_mil", PID: 0x4D, Bytes: 2, Formula: Word, Unit: "min"},
	{Key: "volt_module", PID: 0x42, Bytes: 2, Formula: WordDiv1000, Unit: "V"},
	{Key: "abs_load", PID: 0x43, Bytes: 2, Formula: WordPercent, Unit: "%"},
	{Key: "cmd_air_fuel", PID: 0x44, Bytes: 2, Formula: Ratio, Unit: "ratio"},
	{Key: "rel_throttle", PID: 0x45, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "throttle_b", PID: 0x47, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "accel_d", PID: 0x49, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "cmd_throttle", PID: 0x4C, Bytes: 1, Formula: Percent, Unit: "%"},
	{Key: "time_since_dtc", PID: 0x4E, Bytes: 2, Formula: Word, Unit: "min"},
}
