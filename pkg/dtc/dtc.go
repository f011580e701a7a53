package dtc

// How to read DTC codes
//B0 B1    First DTC character
//-- --    -------------------
// 0  0    P - Powertrain
// 0  1    C - Chassis
// 1  0    B - Body
// 1  1    U - Network

//B2 B3    Second DTC character 0-3

//B4..B15  Third/Fourth/Fifth DTC characters, one hex digit each

// Example
// C0 12 ->
// 1100 0000 0001 0010
// 11=U 00=0 0000=0 0001=1 0010=2 -> U0012

// Decode decodes a 2-byte DTC value (A,B) into a string like "P0143".
// Returns "" if both bytes are zero, which means no code.
func Decode(a, b byte) string {
	if a == 0 && b == 0 {
		return ""
	}

	systemChars := [4]byte{'P', 'C', 'B', 'U'}
	secondDigit := [4]byte{'0', '1', '2', '3'}
	hexDigits := "0123456789ABCDEF"

	code := make([]byte, 5)
	code[0] = systemChars[(a>>6)&0x03]
	code[1] = secondDigit[(a>>4)&0x03]
	code[2] = hexDigits[a&0x0F]
	code[3] = hexDigits[(b>>4)&0x0F]
	code[4] = hexDigits[b&0x0F]
	return string(code)
}

// DecodeAll walks data in consecutive 2-byte groups and decodes each
// into its textual form, preserving order. Zero groups are skipped and
// a trailing odd byte is ignored.
func DecodeAll(data []byte) []string {
	codes := make([]string, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if code := Decode(data[i], data[i+1]); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
