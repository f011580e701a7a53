package goobd

import (
	"context"
	"sync"
	"sync/atomic"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "Sim",
		Description:        "Simulated ECU for testing without a bus",
		RequiresSerialPort: false,
		New:                NewSim,
	}); err != nil {
		panic(err)
	}
}

// Sim answers OBD-II requests like a single ECU would: supported-PID
// bitmaps, live values, trouble codes, VIN (multi frame, gated on our
// flow control) and clear. Fields may be adjusted before Open.
type Sim struct {
	BaseAdapter

	VIN       string
	Supported []byte
	Values    map[byte][]byte // mode 01/02 data bytes per PID

	mu   sync.Mutex
	dtcs [][2]byte

	// consecutive frames held back until the tester's flow control
	pending []*CANFrame

	frameCount atomic.Int64
}

func NewSim(cfg *AdapterConfig) (Adapter, error) {
	sim := &Sim{
		BaseAdapter: NewBaseAdapter("Sim", cfg),
		VIN:         "W0L000036V1940069",
		Supported:   []byte{0x01, 0x03, 0x04, 0x05, 0x06, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11, 0x13, 0x15, 0x1F, 0x21, 0x2E, 0x2F, 0x30, 0x31, 0x33, 0x34, 0x42, 0x43, 0x44, 0x45, 0x47, 0x49, 0x4C},
		Values: map[byte][]byte{
			0x05: {0x8C},       // 100 °C
			0x0C: {0x0C, 0x94}, // 805 rpm
			0x0D: {0x37},       // 55 km/h
			0x10: {0x3A, 0x98}, // 150 g/s
			0x42: {0x32, 0xC8}, // 13 V
		},
	}
	return sim, nil
}

func (s *Sim) Open(ctx context.Context) error {
	go s.run(ctx)
	return nil
}

func (s *Sim) Close() error {
	s.BaseAdapter.Close()
	return nil
}

func (s *Sim) SetFilter([]uint32) error {
	return nil
}

// SetDTCs replaces the stored trouble codes.
func (s *Sim) SetDTCs(codes ...[2]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dtcs = codes
}

// FrameCount returns how many frames the tester has transmitted.
func (s *Sim) FrameCount() int64 {
	return s.frameCount.Load()
}

func (s *Sim) requestID() uint32 {
	if s.cfg.UseExtendedID {
		return FunctionalIDExt
	}
	return FunctionalID
}

func (s *Sim) responseID() uint32 {
	if s.cfg.UseExtendedID {
		return ResponseLowExt
	}
	return ResponseLow
}

func (s *Sim) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeChan:
			return
		case frame := <-s.sendChan:
			s.frameCount.Add(1)
			s.handle(frame)
		}
	}
}

func (s *Sim) handle(frame *CANFrame) {
	if frame.RTR || frame.Identifier != s.requestID() || len(frame.Data) < 2 {
		return
	}
	data := frame.Data
	if data[0]&0xF0 == 0x30 {
		// tester flow control, release the held consecutive frames
		s.mu.Lock()
		pending := s.pending
		s.pending = nil
		s.mu.Unlock()
		for _, cf := range pending {
			s.deliver(cf)
		}
		return
	}
	n := int(data[0] & 0x0F)
	if n == 0 || n > 7 || len(data) < 1+n {
		return
	}
	mode := data[1]
	switch mode {
	case ModeCurrentData, ModeFreezeFrame:
		if n < 2 {
			return
		}
		s.answerPID(mode, data[2])
	case ModeStoredDTCs:
		s.answerDTCs()
	case ModeClearDTCs:
		s.mu.Lock()
		s.dtcs = nil
		s.mu.Unlock()
		s.respond([]byte{mode + ResponseOffset})
	case ModeVehicleInfo:
		if n < 2 || data[2] != PIDVin {
			return
		}
		s.respond(append([]byte{0x49, PIDVin, 0x01}, []byte(s.VIN)...))
	}
}

func (s *Sim) answerPID(mode, code byte) {
	var value []byte
	if code%0x20 == 0 && code < 0xC0 {
		mask := s.maskFor(code)
		value = []byte{byte(mask >> 24), byte(mask >> 16), byte(mask >> 8), byte(mask)}
	} else if v, ok := s.Values[code]; ok {
		value = v
	} else {
		return // unsupported PID, a real ECU stays silent
	}
	s.respond(append([]byte{mode + ResponseOffset, code}, value...))
}

func (s *Sim) maskFor(base byte) uint32 {
	var mask uint32
	for i := 0; i < 31; i++ {
		for _, p := range s.Supported {
			if p == base+byte(i)+1 {
				mask |= 1 << (31 - i)
			}
		}
	}
	for _, p := range s.Supported {
		if p > base+0x20 {
			mask |= 1
			break
		}
	}
	return mask
}

func (s *Sim) answerDTCs() {
	s.mu.Lock()
	codes := s.dtcs
	s.mu.Unlock()
	payload := []byte{0x43, byte(len(codes))}
	for _, c := range codes {
		payload = append(payload, c[0], c[1])
	}
	s.respond(payload)
}

// respond segments the payload into a single frame or a first frame
// plus held-back consecutive frames per ISO-TP.
func (s *Sim) respond(payload []byte) {
	if len(payload) <= 7 {
		data := make([]byte, 8)
		data[0] = byte(len(payload))
		copy(data[1:], payload)
		for i := 1 + len(payload); i < 8; i++ {
			data[i] = 0xAA
		}
		s.deliver(s.frame(data))
		return
	}
	ff := make([]byte, 8)
	ff[0] = 0x10 | byte(len(payload)>>8&0x0F)
	ff[1] = byte(len(payload))
	copy(ff[2:], payload[:6])
	rest := payload[6:]

	var cfs []*CANFrame
	seq := byte(1)
	for len(rest) > 0 {
		chunk := make([]byte, 8)
		chunk[0] = 0x20 | seq
		m := copy(chunk[1:], rest)
		for i := 1 + m; i < 8; i++ {
			chunk[i] = 0xAA
		}
		rest = rest[m:]
		cfs = append(cfs, s.frame(chunk))
		seq = (seq + 1) & 0x0F
	}

	s.mu.Lock()
	s.pending = cfs
	s.mu.Unlock()
	s.deliver(s.frame(ff))
}

func (s *Sim) frame(data []byte) *CANFrame {
	f := NewFrame(s.responseID(), data, Incoming)
	f.Extended = s.cfg.UseExtendedID
	return f
}

func (s *Sim) deliver(frame *CANFrame) {
	select {
	case s.recvChan <- frame:
	default:
		s.SetError(ErrDroppedFrame)
	}
}
