package pid

// Formula selects the arithmetic used to turn raw payload bytes into a
// physical value. A is the first payload byte, B the second.
type Formula int

const (
	Bits        Formula = iota // big endian integer of all bytes, bit encoded data
	UByte                      // A
	Percent                    // A * 100 / 255
	TempOffset                 // A - 40
	FuelTrim                   // A * 100 / 128 - 100
	HalfMinus64                // A / 2 - 64
	SensorVolt                 // A / 200
	RPM                        // ((A << 8) + B) / 4
	Word                       // (A << 8) + B
	WordDiv100                 // ((A << 8) + B) / 100
	WordDiv1000                // ((A << 8) + B) / 1000
	WordPercent                // ((A << 8) + B) * 100 / 255
	Ratio                      // ((A << 8) + B) * 2 / 65536
)

func (f Formula) apply(data []byte) float64 {
	a := float64(data[0])
	var word float64
	if len(data) > 1 {
		word = float64(uint16(data[0])<<8 | uint16(data[1]))
	}
	switch f {
	case UByte:
		return a
	case Percent:
		return a * 100 / 255
	case TempOffset:
		return a - 40
	case FuelTrim:
		return a*100/128 - 100
	case HalfMinus64:
		return a/2 - 64
	case SensorVolt:
		return a / 200
	case RPM:
		return word / 4
	case Word:
		return word
	case WordDiv100:
		return word / 100
	case WordDiv1000:
		return word / 1000
	case WordPercent:
		return word * 100 / 255
	case Ratio:
		return word * 2 / 65536
	}
	// Bits and anything unknown, accumulate big endian
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return float64(v)
}
