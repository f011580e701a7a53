package isotp

import (
	"fmt"
	"time"
)

// Filler is the pad byte used to bring outgoing payloads up to a full 8 byte DLC.
const Filler = 0xCC

// MaxPayload is the largest transfer a 12-bit first frame length can describe.
const MaxPayload = 4095

const (
	pciSingle      = 0x0
	pciFirst       = 0x1
	pciConsecutive = 0x2
	pciFlowControl = 0x3
)

// Flow control status values as sent in the low nibble of byte 0.
const (
	FlowStatusContinue = 0x00
	FlowStatusWait     = 0x01
	FlowStatusOverflow = 0x02
)

// Frame is one of SingleFrame, FirstFrame, ConsecutiveFrame or FlowControlFrame.
type Frame interface {
	pci() byte
}

type SingleFrame struct {
	Data []byte
}

type FirstFrame struct {
	TotalLength int
	Data        []byte
}

type ConsecutiveFrame struct {
	Sequence byte
	Data     []byte
}

type FlowControlFrame struct {
	Status         byte
	BlockSize      byte
	SeparationTime byte
}

func (SingleFrame) pci() byte      { return pciSingle }
func (FirstFrame) pci() byte       { return pciFirst }
func (ConsecutiveFrame) pci() byte { return pciConsecutive }
func (FlowControlFrame) pci() byte { return pciFlowControl }

// Separation returns the STmin as a duration. Values 0xF1-0xF9 encode
// 100-900µs, everything else reserved is clamped to the 127ms maximum.
func (f FlowControlFrame) Separation() time.Duration {
	switch {
	case f.SeparationTime <= 0x7F:
		return time.Duration(f.SeparationTime) * time.Millisecond
	case f.SeparationTime >= 0xF1 && f.SeparationTime <= 0xF9:
		return time.Duration(f.SeparationTime-0xF0) * 100 * time.Microsecond
	}
	return 127 * time.Millisecond
}

// EncodeRequest builds a padded 8 byte single frame around payload.
// Byte 0 is the single frame PCI carrying the payload length.
func EncodeRequest(payload ...byte) ([]byte, error) {
	if len(payload) > 7 {
		return nil, fmt.Errorf("%w: %d bytes", ErrEncode, len(payload))
	}
	out := make([]byte, 8)
	out[0] = byte(len(payload))
	copy(out[1:], payload)
	for i := 1 + len(payload); i < 8; i++ {
		out[i] = Filler
	}
	return out, nil
}

// FlowControl builds a padded 8 byte flow control payload.
func FlowControl(status, blockSize, separationTime byte) []byte {
	out := []byte{0x30 | status&0x0F, blockSize, separationTime, Filler, Filler, Filler, Filler, Filler}
	return out
}

// Classify reads the PCI nibble of a received payload and returns the
// typed frame. The returned frames alias data, they do not copy it.
func Classify(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPCI)
	}
	switch data[0] >> 4 {
	case pciSingle:
		n := int(data[0] & 0x0F)
		if n > 7 || n > len(data)-1 {
			return nil, fmt.Errorf("%w: single frame length %d", ErrInvalidPCI, n)
		}
		return SingleFrame{Data: data[1 : 1+n]}, nil
	case pciFirst:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: truncated first frame", ErrInvalidPCI)
		}
		total := int(data[0]&0x0F)<<8 | int(data[1])
		return FirstFrame{TotalLength: total, Data: data[2:]}, nil
	case pciConsecutive:
		return ConsecutiveFrame{Sequence: data[0] & 0x0F, Data: data[1:]}, nil
	case pciFlowControl:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: truncated flow control", ErrInvalidPCI)
		}
		return FlowControlFrame{Status: data[0] & 0x0F, BlockSize: data[1], SeparationTime: data[2]}, nil
	}
	return nil, fmt.Errorf("%w: 0x%X", ErrInvalidPCI, data[0]>>4)
}
