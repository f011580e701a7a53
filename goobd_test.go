package goobd

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/roffe/goobd/pkg/pid"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *Sim) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	device, err := NewAdapter("Sim", &AdapterConfig{})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	sim := device.(*Sim)

	opts = append([]Option{WithTimeout(250 * time.Millisecond)}, opts...)
	c, err := New(ctx, device, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, sim
}

func TestGetVIN(t *testing.T) {
	c, sim := newTestClient(t)
	sim.VIN = "W0L000036V1940069"

	vin, err := c.GetVIN(context.Background())
	if err != nil {
		t.Fatalf("GetVIN() error = %v", err)
	}
	if vin != "W0L000036V1940069" {
		t.Errorf("GetVIN() = %q, want %q", vin, "W0L000036V1940069")
	}
}

func TestGetDTCs(t *testing.T) {
	c, sim := newTestClient(t)
	sim.SetDTCs([2]byte{0x01, 0x43}, [2]byte{0xC0, 0x12})

	codes, err := c.GetDTCs(context.Background())
	if err != nil {
		t.Fatalf("GetDTCs() error = %v", err)
	}
	want := []string{"P0143", "U0012"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("GetDTCs() = %v, want %v", codes, want)
	}
}

func TestGetDTCsMultiFrame(t *testing.T) {
	c, sim := newTestClient(t)
	// six codes make the response span a first and two consecutive frames
	sim.SetDTCs(
		[2]byte{0x01, 0x43}, [2]byte{0xC0, 0x12}, [2]byte{0x41, 0x22},
		[2]byte{0x81, 0x34}, [2]byte{0x02, 0x21}, [2]byte{0x13, 0x00},
	)

	codes, err := c.GetDTCs(context.Background())
	if err != nil {
		t.Fatalf("GetDTCs() error = %v", err)
	}
	want := []string{"P0143", "U0012", "C0122", "B0134", "P0221", "P1300"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("GetDTCs() = %v, want %v", codes, want)
	}
}

func TestClearDTCs(t *testing.T) {
	c, sim := newTestClient(t)
	sim.SetDTCs([2]byte{0x01, 0x43})

	ctx := context.Background()
	if err := c.ClearDTCs(ctx); err != nil {
		t.Fatalf("ClearDTCs() error = %v", err)
	}
	codes, err := c.GetDTCs(ctx)
	if err != nil {
		t.Fatalf("GetDTCs() error = %v", err)
	}
	if len(codes) != 0 {
		t.Errorf("GetDTCs() after clear = %v, want none", codes)
	}
}

func TestGetPID(t *testing.T) {
	c, _ := newTestClient(t)

	value, err := c.GetPID(context.Background(), "rpm", false)
	if err != nil {
		t.Fatalf("GetPID() error = %v", err)
	}
	if value.Value != 805 || value.Unit != "rpm" {
		t.Errorf("GetPID(rpm) = %v, want 805 rpm", value)
	}
}

func TestGetPIDFreezeFrame(t *testing.T) {
	c, _ := newTestClient(t)

	value, err := c.GetPID(context.Background(), "speed", true)
	if err != nil {
		t.Fatalf("GetPID() error = %v", err)
	}
	if value.Value != 55 {
		t.Errorf("GetPID(speed, freeze) = %v, want 55", value.Value)
	}
}

func TestGetPIDUnknownKeyNoTraffic(t *testing.T) {
	c, sim := newTestClient(t)

	_, err := c.GetPID(context.Background(), "flux_capacitor", false)
	if !errors.Is(err, pid.ErrUnknownParameter) {
		t.Fatalf("GetPID() error = %v, want ErrUnknownParameter", err)
	}
	if n := sim.FrameCount(); n != 0 {
		t.Errorf("unknown parameter generated %d frames on the bus", n)
	}
}

func TestGetSupportedPIDs(t *testing.T) {
	c, sim := newTestClient(t)

	ctx := context.Background()
	got, err := c.GetSupportedPIDs(ctx)
	if err != nil {
		t.Fatalf("GetSupportedPIDs() error = %v", err)
	}
	if !bytes.Equal(got, sim.Supported) {
		t.Errorf("GetSupportedPIDs() = % X, want % X", got, sim.Supported)
	}

	// identical responses must yield an identical ordered set
	again, err := c.GetSupportedPIDs(ctx)
	if err != nil {
		t.Fatalf("GetSupportedPIDs() second run error = %v", err)
	}
	if !bytes.Equal(got, again) {
		t.Errorf("GetSupportedPIDs() not idempotent: % X vs % X", got, again)
	}
}

func TestSupportedFromMask(t *testing.T) {
	// BC 3F A8 03: bit i from the MSB marks PID i+1, the final bit is
	// the continuation flag
	want := []byte{0x01, 0x03, 0x04, 0x05, 0x06, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11, 0x13, 0x15, 0x1F}
	if got := supportedFromMask(0xBC3FA803, 0); !bytes.Equal(got, want) {
		t.Errorf("supportedFromMask() = % X, want % X", got, want)
	}
}

func TestRequestTimeout(t *testing.T) {
	c, _ := newTestClient(t, WithTimeout(100*time.Millisecond))

	ctx := context.Background()
	// the sim stays silent for PIDs it has no value for
	_, err := c.GetPID(ctx, "fuel_level", false)
	if !IsTimeout(err) {
		t.Fatalf("GetPID() error = %v, want timeout", err)
	}

	// no residual session state, the next request succeeds on its own
	value, err := c.GetPID(ctx, "rpm", false)
	if err != nil {
		t.Fatalf("GetPID() after timeout error = %v", err)
	}
	if value.Value != 805 {
		t.Errorf("GetPID(rpm) = %v, want 805", value.Value)
	}
}

func TestEncodeTooLong(t *testing.T) {
	c, sim := newTestClient(t)

	_, err := c.Request(context.Background(), 1, 2, 3, 4, 5, 6, 7, 8)
	if err == nil {
		t.Fatal("Request() with an oversized payload must fail")
	}
	if n := sim.FrameCount(); n != 0 {
		t.Errorf("oversized request generated %d frames on the bus", n)
	}
}

func TestBusNoiseIsIgnored(t *testing.T) {
	c, sim := newTestClient(t)

	// unrelated traffic inside and outside the response range
	sim.recvChan <- NewFrame(0x280, []byte{1, 2, 3, 4, 5, 6, 7, 8}, Incoming)
	sim.recvChan <- NewFrame(0x7E9, []byte{0x03, 0x41, 0x0D, 0x37, 0xAA, 0xAA, 0xAA, 0xAA}, Incoming)

	value, err := c.GetPID(context.Background(), "rpm", false)
	if err != nil {
		t.Fatalf("GetPID() error = %v", err)
	}
	if value.Value != 805 {
		t.Errorf("GetPID(rpm) = %v, want 805", value.Value)
	}
}
