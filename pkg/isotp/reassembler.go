package isotp

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEncode           = errors.New("request payload exceeds a single frame")
	ErrInvalidPCI       = errors.New("invalid PCI")
	ErrSequenceMismatch = errors.New("consecutive frame out of sequence")
	ErrNoSession        = errors.New("no reassembly session active")
	ErrSessionTimeout   = errors.New("reassembly session timed out")
)

type State int

const (
	Idle State = iota
	AwaitingConsecutive
	Complete
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingConsecutive:
		return "awaiting consecutive"
	case Complete:
		return "complete"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Reassembler rebuilds one multi frame transfer at a time. A new first
// frame silently replaces whatever session was in flight, last one wins.
type Reassembler struct {
	frameTimeout time.Duration

	state    State
	expected int
	buf      []byte
	nextSeq  byte
	deadline time.Time
}

// NewReassembler returns a reassembler where each awaited consecutive
// frame must arrive within frameTimeout of the previous one.
func NewReassembler(frameTimeout time.Duration) *Reassembler {
	return &Reassembler{frameTimeout: frameTimeout}
}

func (r *Reassembler) State() State { return r.state }

// Active reports whether a session is awaiting consecutive frames.
func (r *Reassembler) Active() bool { return r.state == AwaitingConsecutive }

// First starts a new session from a first frame, replacing any active one.
func (r *Reassembler) First(f FirstFrame, now time.Time) error {
	r.Reset()
	if f.TotalLength > MaxPayload {
		r.state = Aborted
		return fmt.Errorf("%w: first frame length %d", ErrInvalidPCI, f.TotalLength)
	}
	if f.TotalLength <= 7 {
		// would have fit in a single frame
		r.state = Aborted
		return fmt.Errorf("%w: first frame declares %d bytes", ErrInvalidPCI, f.TotalLength)
	}
	r.expected = f.TotalLength
	r.buf = make([]byte, 0, f.TotalLength)
	r.buf = append(r.buf, f.Data...)
	r.nextSeq = 1
	r.state = AwaitingConsecutive
	r.deadline = now.Add(r.frameTimeout)
	return nil
}

// Consecutive consumes one consecutive frame. It returns true once the
// expected length has been buffered. A sequence mismatch aborts the session.
func (r *Reassembler) Consecutive(f ConsecutiveFrame, now time.Time) (bool, error) {
	if r.state != AwaitingConsecutive {
		return false, ErrNoSession
	}
	if f.Sequence != r.nextSeq {
		r.state = Aborted
		r.buf = nil
		return false, fmt.Errorf("%w: expected %d got %d", ErrSequenceMismatch, r.nextSeq, f.Sequence)
	}
	room := r.expected - len(r.buf)
	if len(f.Data) > room {
		r.buf = append(r.buf, f.Data[:room]...)
	} else {
		r.buf = append(r.buf, f.Data...)
	}
	r.nextSeq = (r.nextSeq + 1) & 0x0F
	r.deadline = now.Add(r.frameTimeout)
	if len(r.buf) >= r.expected {
		r.state = Complete
		return true, nil
	}
	return false, nil
}

// Expire aborts the session if the per frame deadline has passed.
func (r *Reassembler) Expire(now time.Time) error {
	if r.state != AwaitingConsecutive || now.Before(r.deadline) {
		return nil
	}
	r.state = Aborted
	r.buf = nil
	return ErrSessionTimeout
}

// Deadline returns the per frame deadline of the active session.
func (r *Reassembler) Deadline() time.Time { return r.deadline }

// Payload returns the reassembled bytes of a completed session.
func (r *Reassembler) Payload() []byte {
	if r.state != Complete {
		return nil
	}
	return r.buf
}

// Reset discards any session state and returns to idle.
func (r *Reassembler) Reset() {
	r.state = Idle
	r.expected = 0
	r.buf = nil
	r.nextSeq = 0
	r.deadline = time.Time{}
}
