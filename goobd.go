package goobd

import (
	"context"
	"sync"
	"time"
)

// OBD-II service modes used by the engine.
const (
	ModeCurrentData = 0x01
	ModeFreezeFrame = 0x02
	ModeStoredDTCs  = 0x03
	ModeClearDTCs   = 0x04
	ModeVehicleInfo = 0x09

	PIDVin = 0x02

	// a positive response echoes the request mode plus this offset
	ResponseOffset = 0x40
)

// Functional request and response identifiers for standard (11-bit) and
// extended (29-bit) addressing.
const (
	FunctionalID    uint32 = 0x7DF
	ResponseLow     uint32 = 0x7E8
	ResponseHigh    uint32 = 0x7EF
	FunctionalIDExt uint32 = 0x18DB33F1
	ResponseLowExt  uint32 = 0x18DAF110
	ResponseHighExt uint32 = 0x18DAF11F
)

// Client drives the request/response flow against one ECU bus. The bus
// is half duplex so requests are serialized, a second call waits for
// the first to return.
type Client struct {
	adapter Adapter
	fh      *handler

	mu sync.Mutex // one request on the wire at a time

	timeout  time.Duration
	retries  uint
	extended bool

	requestID         uint32
	respLow, respHigh uint32
}

type Option func(*Client)

// WithTimeout sets the response window per request, 1s if not set.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries sets the transmit retry budget, 3 if not set.
func WithRetries(n uint) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithExtendedAddressing switches to 29-bit functional addressing.
func WithExtendedAddressing() Option {
	return func(c *Client) {
		c.extended = true
		c.requestID = FunctionalIDExt
		c.respLow = ResponseLowExt
		c.respHigh = ResponseHighExt
	}
}

// New opens the adapter and starts the frame fan-out. The context
// bounds the lifetime of the background handler.
func New(ctx context.Context, adapter Adapter, opts ...Option) (*Client, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	c := &Client{
		adapter:   adapter,
		fh:        newHandler(adapter),
		timeout:   time.Second,
		retries:   3,
		requestID: FunctionalID,
		respLow:   ResponseLow,
		respHigh:  ResponseHigh,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Coarse hardware pre-filter, source identifiers are still
	// re-validated in software on every received frame.
	if err := adapter.SetFilter(c.responseIdentifiers()); err != nil {
		return nil, err
	}
	if err := adapter.Open(ctx); err != nil {
		return nil, err
	}
	go c.fh.run(ctx)
	return c, nil
}

func (c *Client) Close() error {
	c.fh.Close()
	return c.adapter.Close()
}

func (c *Client) responseIdentifiers() []uint32 {
	ids := make([]uint32, 0, c.respHigh-c.respLow+1)
	for id := c.respLow; id <= c.respHigh; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe returns a Subscriber delivering frames with the given
// identifiers, or every frame when none are given. Close it when done.
func (c *Client) Subscribe(identifiers ...uint32) *Subscriber {
	sub := &Subscriber{
		c:            c,
		identifiers:  make(map[uint32]struct{}, len(identifiers)),
		responseChan: make(chan *CANFrame, 32),
	}
	for _, id := range identifiers {
		sub.identifiers[id] = struct{}{}
	}
	c.fh.registerSubscriber(sub)
	return sub
}

// Err surfaces fatal adapter errors.
func (c *Client) Err() <-chan error {
	return c.adapter.Err()
}

// Send a CAN frame
func (c *Client) Send(frame *CANFrame) error {
	timer := time.NewTimer(20 * time.Millisecond)
	defer timer.Stop()
	select {
	case c.adapter.Send() <- frame:
		return nil
	case err := <-c.adapter.Err():
		return err
	case <-timer.C:
		return ErrSendTimeout
	}
}

// SendFrame builds and sends a standard 11-bit frame
func (c *Client) SendFrame(identifier uint32, data []byte, t CANFrameType) error {
	return c.Send(NewFrame(identifier, data, t))
}
