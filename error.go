package goobd

import (
	"errors"
	"fmt"
)

var (
	ErrNilAdapter            = errors.New("adapter is nil")
	ErrDroppedFrame          = errors.New("adapter incoming channel full")
	ErrSendTimeout           = errors.New("timeout sending frame")
	ErrResponseChannelClosed = errors.New("response channel closed")
	ErrTransport             = errors.New("transmit failed")
	ErrInvalidVIN            = errors.New("invalid VIN length")
)

// TimeoutError is returned when no matching response arrived within the
// request window.
type TimeoutError struct {
	Timeout int64
	Frames  []uint32
	Type    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout (%dms) for frame 0x%03X", e.Type, e.Timeout, e.Frames)
}

// IsTimeout reports whether err is a response timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
