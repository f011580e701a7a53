package goobd

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"go.bug.st/serial"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "SLCan",
		Description:        "Canable SLCan adapter",
		RequiresSerialPort: true,
		New:                NewSLCan,
	}); err != nil {
		panic(err)
	}
}

type SLCan struct {
	BaseAdapter
	port   serial.Port
	closed bool
}

func NewSLCan(cfg *AdapterConfig) (Adapter, error) {
	return &SLCan{
		BaseAdapter: NewBaseAdapter("SLCan", cfg),
	}, nil
}

func (sl *SLCan) Open(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: sl.cfg.PortBaudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(sl.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open com port %q : %v", sl.cfg.Port, err)
	}
	p.SetReadTimeout(3 * time.Millisecond)
	sl.port = p

	p.ResetOutputBuffer()
	p.ResetInputBuffer()

	go sl.sendManager(ctx)
	go sl.recvManager(ctx)

	switch sl.cfg.CANRate {
	case 10.0:
		p.Write([]byte("S0\r"))
	case 20.0:
		p.Write([]byte("S1\r"))
	case 50.0:
		p.Write([]byte("S2\r"))
	case 100.0:
		p.Write([]byte("S3\r"))
	case 125.0:
		p.Write([]byte("S4\r"))
	case 250.0:
		p.Write([]byte("S5\r"))
	case 500.0:
		p.Write([]byte("S6\r"))
	case 750.0:
		p.Write([]byte("S7\r"))
	case 1000.0:
		p.Write([]byte("S8\r"))
	}
	time.Sleep(10 * time.Millisecond)
	p.Write([]byte("O\r"))
	return nil
}

// SetFilter is a no-op, SLCAN has no usable acceptance filter so the
// engine filters in software.
func (sl *SLCan) SetFilter(filters []uint32) error {
	return nil
}

func (sl *SLCan) Close() error {
	sl.BaseAdapter.Close()
	sl.closed = true
	time.Sleep(10 * time.Millisecond)
	sl.port.Write([]byte("C\r"))
	time.Sleep(10 * time.Millisecond)
	return sl.port.Close()
}

func (sl *SLCan) recvManager(ctx context.Context) {
	buf := make([]byte, 0, 1024)
	readBuf := make([]byte, 16)
	for ctx.Err() == nil {
		n, err := sl.port.Read(readBuf)
		if err != nil {
			if !sl.closed {
				sl.SetError(fmt.Errorf("failed to read com port: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		buf = sl.parse(buf, readBuf[:n])
	}
}

func (sl *SLCan) sendManager(ctx context.Context) {
	outBuf := make([]byte, 0, 32)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sl.closeChan:
			return
		case frame := <-sl.sendChan:
			if err := sl.handleSend(frame, &outBuf); err != nil {
				sl.cfg.OnMessage(fmt.Sprintf("send error: %v", err))
			}
		}
	}
}

func (sl *SLCan) handleSend(frame *CANFrame, outBuf *[]byte) error {
	buf := (*outBuf)[:0]

	// 't' + 3 hex digit ID (or 'T' + 8 for 29-bit) + len nibble + data as hex + CR
	if frame.Extended {
		buf = append(buf, 'T')
		id := frame.Identifier & 0x1FFFFFFF
		for shift := 28; shift >= 0; shift -= 4 {
			buf = append(buf, nybbleToHex(byte(id>>shift)&0xF))
		}
	} else {
		buf = append(buf, 't')
		id := frame.Identifier & 0x7FF
		buf = append(buf, nybbleToHex(byte(id>>8)&0xF), nybbleToHex(byte(id>>4)&0xF), nybbleToHex(byte(id)&0xF))
	}

	dlc := frame.Length()
	buf = append(buf, nybbleToHex(byte(dlc)&0xF))
	for i := 0; i < dlc; i++ {
		buf = append(buf, nybbleToHex(frame.Data[i]>>4), nybbleToHex(frame.Data[i]&0xF))
	}
	buf = append(buf, '\r')

	if _, err := sl.port.Write(buf); err != nil {
		return fmt.Errorf("failed to write to com port: %w", err)
	}
	if sl.cfg.Debug {
		log.Println(">> " + string(buf))
	}
	*outBuf = buf
	return nil
}

func nybbleToHex(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'A' + (n - 10)
}

// parse processes the read data and returns any remaining partial data.
func (sl *SLCan) parse(buf, readBuf []byte) []byte {
	for _, b := range readBuf {
		if b != '\r' {
			buf = append(buf, b)
			continue
		}
		if len(buf) == 0 {
			continue
		}
		switch buf[0] {
		case 't':
			sl.decodeFrame(buf[1:], 3, false)
		case 'T':
			sl.decodeFrame(buf[1:], 8, true)
		}
		buf = buf[:0]
	}
	return buf
}

func (sl *SLCan) decodeFrame(msg []byte, idLen int, extended bool) {
	if len(msg) < idLen+1 {
		return
	}
	id, err := strconv.ParseUint(string(msg[:idLen]), 16, 32)
	if err != nil {
		return
	}
	dlc, err := strconv.ParseUint(string(msg[idLen:idLen+1]), 16, 8)
	if err != nil || len(msg) < idLen+1+int(dlc)*2 {
		return
	}
	data := make([]byte, 0, dlc)
	for i := 0; i < int(dlc); i++ {
		b, err := strconv.ParseUint(string(msg[idLen+1+i*2:idLen+3+i*2]), 16, 8)
		if err != nil {
			return
		}
		data = append(data, byte(b))
	}
	frame := NewFrame(uint32(id), data, Incoming)
	frame.Extended = extended
	select {
	case sl.recvChan <- frame:
	default:
		sl.SetError(ErrDroppedFrame)
	}
}
