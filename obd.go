package goobd

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/roffe/goobd/pkg/dtc"
	"github.com/roffe/goobd/pkg/pid"
)

// GetPID requests a parameter by registry key and decodes it into a
// physical value. With freezeFrame set the mode 02 snapshot is read
// instead of live data.
func (c *Client) GetPID(ctx context.Context, key string, freezeFrame bool) (pid.Value, error) {
	entry, err := pid.Lookup(key)
	if err != nil {
		// no bus traffic for unknown keys
		return pid.Value{}, err
	}
	mode := byte(ModeCurrentData)
	if freezeFrame {
		mode = ModeFreezeFrame
	}
	resp, err := c.Request(ctx, mode, entry.PID)
	if err != nil {
		return pid.Value{}, err
	}
	return entry.Decode(resp.Payload[1:])
}

// GetSupportedPIDs walks the supported-PID bitmaps starting at PID 0x00
// and follows the continuation bit through the 0x20, 0x40, ... pages.
// On failure the PIDs gathered so far are returned alongside the error.
func (c *Client) GetSupportedPIDs(ctx context.Context) ([]byte, error) {
	var out []byte
	var base byte
	for {
		resp, err := c.Request(ctx, ModeCurrentData, base)
		if err != nil {
			return out, err
		}
		if len(resp.Payload) < 5 {
			return out, fmt.Errorf("%w: supported PID mask", pid.ErrShortPayload)
		}
		mask := binary.BigEndian.Uint32(resp.Payload[1:5])
		out = append(out, supportedFromMask(mask, base)...)
		if mask&1 == 0 {
			break
		}
		base += 0x20
	}
	return out, nil
}

// supportedFromMask expands a 32-bit bitmap: bit i counted from the MSB
// marks PID base+i+1 as supported. The final bit is the continuation
// flag and is not a PID.
func supportedFromMask(mask uint32, base byte) []byte {
	var out []byte
	for i := 0; i < 31; i++ {
		if mask&(1<<(31-i)) != 0 {
			out = append(out, base+byte(i)+1)
		}
	}
	return out
}

// GetDTCs reads the stored diagnostic trouble codes and returns their
// textual form, e.g. "P0143".
func (c *Client) GetDTCs(ctx context.Context) ([]string, error) {
	resp, err := c.Request(ctx, ModeStoredDTCs)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) < 1 {
		return nil, nil
	}
	// payload[0] is the code count, pairs follow
	return dtc.DecodeAll(resp.Payload[1:]), nil
}

// ClearDTCs erases stored trouble codes and the MIL state (mode 04).
func (c *Client) ClearDTCs(ctx context.Context) error {
	_, err := c.Request(ctx, ModeClearDTCs)
	return err
}

// GetVIN reads the vehicle identification number (mode 09 PID 02). The
// reassembled payload is mode, PID and data item count followed by the
// 17 VIN characters.
func (c *Client) GetVIN(ctx context.Context) (string, error) {
	resp, err := c.Request(ctx, ModeVehicleInfo, PIDVin)
	if err != nil {
		return "", err
	}
	if len(resp.Payload) < 3 {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidVIN, len(resp.Payload))
	}
	vin := bytes.TrimRight(resp.Payload[2:], "\x00\xCC")
	if len(vin) != 17 {
		return "", fmt.Errorf("%w: %d characters", ErrInvalidVIN, len(vin))
	}
	return string(vin), nil
}
