package goobd

import (
	"context"
	"sync"
	"time"
)

// Subscriber receives the frames whose identifiers it registered for.
type Subscriber struct {
	c            *Client
	identifiers  map[uint32]struct{}
	responseChan chan *CANFrame
	closeOnce    sync.Once
}

func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.c.fh.unregisterSubscriber(s)
	})
}

func (s *Subscriber) Chan() <-chan *CANFrame {
	return s.responseChan
}

// Wait blocks until a frame arrives, the context is done or the timeout
// elapses. A timeout returns a nil frame and a nil error so the caller
// can tell bus silence apart from cancellation.
func (s *Subscriber) Wait(ctx context.Context, timeout time.Duration) (*CANFrame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-s.responseChan:
		if !ok {
			return nil, ErrResponseChannelClosed
		}
		return frame, nil
	case <-timer.C:
		return nil, nil
	}
}
