package goobd

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/roffe/goobd/pkg/isotp"
)

// Response is one matched, reassembled OBD-II response. Payload holds
// the bytes following the echoed mode: for mode 01/02 the first byte is
// the PID echo, for mode 03 the trouble code count.
type Response struct {
	Source  uint32
	Mode    byte
	PID     byte
	HasPID  bool
	Payload []byte
}

// Request transmits a padded single frame carrying payload (mode, then
// optional PID and extra data) and blocks until a matching response is
// reassembled, the window times out or the transport fails. Responses
// whose source identifier, mode echo or PID echo do not match are bus
// noise and are silently discarded.
func (c *Client) Request(ctx context.Context, payload ...byte) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty request", isotp.ErrEncode)
	}
	data, err := isotp.EncodeRequest(payload...)
	if err != nil {
		// malformed before send, not retried
		return nil, err
	}

	sub := c.Subscribe(c.responseIdentifiers()...)
	defer sub.Close()

	frame := NewFrame(c.requestID, data, Outgoing)
	if c.extended {
		frame.Extended = true
	}
	if err := retry.Do(func() error {
		return c.Send(frame)
	},
		retry.Attempts(c.retries),
		retry.Context(ctx),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
	); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransport, err)
	}

	reqMode := payload[0]
	var reqPID byte
	hasPID := len(payload) > 1
	if hasPID {
		reqPID = payload[1]
	}

	reasm := isotp.NewReassembler(c.timeout)
	deadline := time.Now().Add(c.timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		recv, err := sub.Wait(ctx, remaining)
		if err != nil {
			return nil, err
		}
		if recv == nil {
			break // window elapsed with no matching frame
		}
		if recv.RTR || recv.Extended != c.extended {
			continue
		}
		if recv.Identifier < c.respLow || recv.Identifier > c.respHigh {
			continue
		}

		f, err := isotp.Classify(recv.Data)
		if err != nil {
			return nil, err
		}

		switch f := f.(type) {
		case isotp.SingleFrame:
			if reasm.Active() {
				continue
			}
			if !matches(f.Data, reqMode, hasPID, reqPID) {
				continue
			}
			return newResponse(recv.Identifier, f.Data, hasPID), nil

		case isotp.FirstFrame:
			// a new first frame replaces any stale session
			if !matches(f.Data, reqMode, hasPID, reqPID) {
				continue
			}
			if err := reasm.First(f, time.Now()); err != nil {
				reasm.Reset()
				continue
			}
			fc := NewFrame(c.requestID, isotp.FlowControl(isotp.FlowStatusContinue, 0, 0), Outgoing)
			if c.extended {
				fc.Extended = true
			}
			if err := c.Send(fc); err != nil {
				return nil, fmt.Errorf("%w: flow control: %s", ErrTransport, err)
			}
			deadline = time.Now().Add(c.timeout)

		case isotp.ConsecutiveFrame:
			if !reasm.Active() {
				continue
			}
			done, err := reasm.Consecutive(f, time.Now())
			if err != nil {
				return nil, err
			}
			if done {
				return newResponse(recv.Identifier, reasm.Payload(), hasPID), nil
			}
			deadline = time.Now().Add(c.timeout)

		case isotp.FlowControlFrame:
			// we never send multi frame requests, nothing to throttle
			continue
		}
	}

	return nil, &TimeoutError{
		Timeout: c.timeout.Milliseconds(),
		Frames:  []uint32{c.respLow, c.respHigh},
		Type:    "request",
	}
}

// matches checks the mode echo and, when the request carried one, the
// PID echo of a response payload.
func matches(data []byte, reqMode byte, hasPID bool, reqPID byte) bool {
	if len(data) == 0 || data[0] != reqMode+ResponseOffset {
		return false
	}
	if hasPID && (len(data) < 2 || data[1] != reqPID) {
		return false
	}
	return true
}

func newResponse(source uint32, data []byte, hasPID bool) *Response {
	resp := &Response{
		Source:  source,
		Mode:    data[0],
		Payload: append([]byte(nil), data[1:]...),
	}
	if hasPID && len(data) > 1 {
		resp.PID = data[1]
		resp.HasPID = true
	}
	return resp
}
