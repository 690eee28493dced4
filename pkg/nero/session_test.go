package nero

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestOpenNegotiatesChunkSize(t *testing.T) {
	dev := &fakeDev{desc: bulkPair(64)}
	s, err := Open(dev)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if s.ChunkSize() != 64 || !s.IsOpen() {
		t.Fatalf("ChunkSize = %d, IsOpen = %v", s.ChunkSize(), s.IsOpen())
	}

	if len(dev.calls) != 2 {
		t.Fatalf("Open issued %d transfers, want 2", len(dev.calls))
	}
	get := dev.calls[0]
	if get.rType != RequestTypeStandardIn || get.request != RequestGetDescriptor ||
		get.value != 0x0200 || get.length != DescriptorBufSize {
		t.Fatalf("unexpected descriptor request: %+v", get)
	}
	mode := dev.calls[1]
	if mode.rType != RequestTypeVendorOut || mode.request != CmdModeStatus ||
		mode.value != ModeJTAG || mode.index != ModeJTAG || mode.length != 0 {
		t.Fatalf("unexpected mode request: %+v", mode)
	}
}

func TestDiscovery(t *testing.T) {
	tests := []struct {
		name    string
		desc    []byte
		want    uint16
		wantErr error
	}{
		{name: "matched 64", desc: bulkPair(64), want: 64},
		{name: "high speed 512", desc: bulkPair(512), want: 512},
		{
			name: "size mismatch",
			desc: buildConfig(
				testEndpoint{addr: EndpointOut, attrs: 0x02, size: 64},
				testEndpoint{addr: EndpointIn, attrs: 0x02, size: 32},
			),
		},
		{
			name: "missing IN",
			desc: buildConfig(testEndpoint{addr: EndpointOut, attrs: 0x02, size: 64}),
		},
		{
			name: "missing OUT",
			desc: buildConfig(testEndpoint{addr: EndpointIn, attrs: 0x02, size: 64}),
		},
		{
			name: "interrupt endpoint ignored",
			desc: buildConfig(
				testEndpoint{addr: EndpointOut, attrs: 0x03, size: 64},
				testEndpoint{addr: EndpointIn, attrs: 0x02, size: 64},
			),
		},
		{
			name: "extra endpoints skipped",
			desc: buildConfig(
				testEndpoint{addr: 0x81, attrs: 0x03, size: 8},
				testEndpoint{addr: EndpointOut, attrs: 0x02, size: 64},
				testEndpoint{addr: 0x86, attrs: 0x02, size: 512},
				testEndpoint{addr: EndpointIn, attrs: 0x02, size: 64},
			),
			want: 64,
		},
		{name: "empty descriptor"},
		{
			name:    "truncated endpoint",
			desc:    bulkPair(64)[:9+9+7+3],
			wantErr: ErrMalformedDescriptor,
		},
		{
			name:    "zero length record",
			desc:    append([]byte{9, 2, 0, 0, 1, 1, 0, 0x80, 50}, 0, 0),
			wantErr: ErrMalformedDescriptor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDev{desc: tt.desc}
			s, err := Open(dev)
			if tt.want != 0 {
				if err != nil {
					t.Fatalf("Open returned error: %v", err)
				}
				if s.ChunkSize() != tt.want {
					t.Fatalf("ChunkSize = %d, want %d", s.ChunkSize(), tt.want)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if StatusOf(err) != StatusEndpoints {
				t.Fatalf("status = %s, want Endpoints (%v)", StatusOf(err), err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error %v does not wrap %v", err, tt.wantErr)
			}
			if len(dev.calls) != 1 {
				t.Fatalf("JTAG mode was touched after a discovery failure: %+v", dev.calls)
			}
		})
	}
}

func TestEndpointSizesLittleEndian(t *testing.T) {
	desc := bulkPair(0x0200)
	// wMaxPacketSize of the first endpoint sits at offset 9+9+4.
	if desc[22] != 0x00 || desc[23] != 0x02 {
		t.Fatalf("descriptor not little-endian: % X", desc[22:24])
	}
	out, in, err := EndpointSizes(desc)
	if err != nil || out != 512 || in != 512 {
		t.Fatalf("EndpointSizes = %d, %d, %v", out, in, err)
	}
}

func TestOpenFailures(t *testing.T) {
	t.Run("descriptor transfer", func(t *testing.T) {
		dev := &fakeDev{desc: bulkPair(64)}
		dev.failOn = func(int, call) error { return codedErr{msg: "LIBUSB_ERROR_PIPE", code: -9} }

		var s Session
		err := s.Open(dev)
		var ne *Error
		if !errors.As(err, &ne) || ne.Status != StatusEndpoints || ne.Code != -9 {
			t.Fatalf("Open error = %v", err)
		}
		if !strings.Contains(err.Error(), "LIBUSB_ERROR_PIPE") {
			t.Fatalf("message %q lacks transport text", err.Error())
		}
		if s.IsOpen() || s.ChunkSize() != 0 || s.dev != nil {
			t.Fatalf("session not reset after failure: %+v", s)
		}
	})

	t.Run("enable", func(t *testing.T) {
		dev := &fakeDev{desc: bulkPair(64)}
		dev.failOn = func(_ int, c call) error {
			if c.request == CmdModeStatus {
				return codedErr{msg: "LIBUSB_ERROR_NO_DEVICE", code: -4}
			}
			return nil
		}

		var s Session
		err := s.Open(dev)
		if StatusOf(err) != StatusEnable {
			t.Fatalf("status = %s, want Enable", StatusOf(err))
		}
		if s.IsOpen() || s.ChunkSize() != 0 || s.dev != nil {
			t.Fatalf("session not reset after failure: %+v", s)
		}
	})

	t.Run("nil device", func(t *testing.T) {
		if _, err := Open(nil); !errors.Is(err, ErrNotOpen) {
			t.Fatalf("Open(nil) = %v", err)
		}
	})
}

func TestClose(t *testing.T) {
	t.Run("never opened", func(t *testing.T) {
		var s Session
		if err := s.Close(); err != nil {
			t.Fatalf("Close on unopened session = %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("second Close = %v", err)
		}
		var nilSession *Session
		if err := nilSession.Close(); err != nil {
			t.Fatalf("Close on nil session = %v", err)
		}
	})

	t.Run("disables JTAG", func(t *testing.T) {
		s, dev := openFake(64)
		if err := s.Close(); err != nil {
			t.Fatalf("Close returned error: %v", err)
		}
		if len(dev.calls) != 1 {
			t.Fatalf("Close issued %d transfers", len(dev.calls))
		}
		c := dev.calls[0]
		if c.request != CmdModeStatus || c.value != 0 || c.index != ModeJTAG {
			t.Fatalf("unexpected close request: %+v", c)
		}
		if s.IsOpen() {
			t.Fatal("session still open after Close")
		}
		if err := s.Close(); err != nil || len(dev.calls) != 1 {
			t.Fatalf("second Close = %v after %d transfers", err, len(dev.calls))
		}
	})

	t.Run("failure still resets", func(t *testing.T) {
		s, dev := openFake(64)
		dev.failOn = func(int, call) error { return errBoom }
		err := s.Close()
		if StatusOf(err) != StatusEnable || !errors.Is(err, errBoom) {
			t.Fatalf("Close error = %v", err)
		}
		if s.IsOpen() {
			t.Fatal("session still open after failed Close")
		}
	})
}

func TestClockFSM(t *testing.T) {
	s, dev := openFake(64)
	if err := s.ClockFSM(0b1011, 4); err != nil {
		t.Fatalf("ClockFSM returned error: %v", err)
	}
	c := dev.calls[0]
	if c.rType != RequestTypeVendorOut || c.request != CmdJTAGClockFSM || c.value != 4 || c.index != 0 {
		t.Fatalf("unexpected ClockFSM request: %+v", c)
	}
	if want := []byte{0x0B, 0x00, 0x00, 0x00}; string(c.data) != string(want) {
		t.Fatalf("payload = % X, want % X", c.data, want)
	}
	if binary.LittleEndian.Uint32(c.data) != 0x0000000B {
		t.Fatal("payload is not the little-endian pattern")
	}

	if err := s.ClockFSM(0, 0); err != nil {
		t.Fatalf("ClockFSM with zero transitions = %v", err)
	}

	dev.failOn = func(int, call) error { return codedErr{msg: "timeout", code: -7} }
	if err := s.ClockFSM(1, 1); StatusOf(err) != StatusClockFSM {
		t.Fatalf("failing ClockFSM status = %s", StatusOf(err))
	}
}

func TestClocks(t *testing.T) {
	s, dev := openFake(64)
	if err := s.Clocks(0x1_0002); err != nil {
		t.Fatalf("Clocks returned error: %v", err)
	}
	c := dev.calls[0]
	if c.request != CmdJTAGClock || c.value != 0x0002 || c.index != 0x0001 || c.length != 0 {
		t.Fatalf("unexpected Clocks request: %+v", c)
	}

	dev.failOn = func(int, call) error { return errBoom }
	if err := s.Clocks(1); StatusOf(err) != StatusClocks {
		t.Fatalf("failing Clocks status = %s", StatusOf(err))
	}

	var closed Session
	if err := closed.Clocks(1); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Clocks on closed session = %v", err)
	}
}

func TestErrorRendering(t *testing.T) {
	err := fail(StatusReceive, "doReceive", codedErr{msg: "LIBUSB_ERROR_TIMEOUT", code: -7}, "")
	if got, want := err.Error(), "nero: doReceive(): LIBUSB_ERROR_TIMEOUT (-7)"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if StatusOf(nil) != StatusSuccess {
		t.Fatal("nil error is not Success")
	}
	if StatusReceive.String() != "Receive" || Status(99).String() != "Status(99)" {
		t.Fatal("unexpected Status names")
	}
}
