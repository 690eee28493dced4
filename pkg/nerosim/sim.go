package nerosim

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/OpenTraceLab/nerojtag/pkg/nero"
	"github.com/OpenTraceLab/nerojtag/pkg/tap"
)

// libusb error numbers reported by simulated faults.
const (
	ErrnoIO      = -1
	ErrnoTimeout = -7
	ErrnoPipe    = -9
)

// Fault is a simulated transport failure.
type Fault struct {
	Message string
	Errno   int
}

func (f *Fault) Error() string { return f.Message }

// Code reports the libusb error number.
func (f *Fault) Code() int { return f.Errno }

func stall(format string, args ...any) *Fault {
	return &Fault{Message: "LIBUSB_ERROR_PIPE: " + fmt.Sprintf(format, args...), Errno: ErrnoPipe}
}

// Call records one transfer the simulator served.
type Call struct {
	Kind     CallKind
	RType    uint8
	Request  uint8
	Value    uint16
	Index    uint16
	Endpoint uint8
	Len      int
}

// CallKind distinguishes the three transfer primitives.
type CallKind uint8

const (
	CallControl CallKind = iota
	CallBulkWrite
	CallBulkRead
)

func (k CallKind) String() string {
	switch k {
	case CallControl:
		return "control"
	case CallBulkWrite:
		return "bulk-out"
	case CallBulkRead:
		return "bulk-in"
	}
	return fmt.Sprintf("CallKind(%d)", uint8(k))
}

// pendingShift is the firmware's view of an in-flight begin-shift.
type pendingShift struct {
	active  bool
	bits    uint32
	mode    nero.SendMode
	isLast  bool
	respond bool
	tdo     []byte
}

// Sim emulates NeroJTAG firmware in front of a chain of TAP devices. It
// implements nero.Transport.
type Sim struct {
	// OutSize and InSize are the wMaxPacketSize values advertised for the
	// bulk endpoints. Zero omits the endpoint from the descriptor.
	OutSize uint16
	InSize  uint16

	// Fail, when set, is consulted before every transfer; a non-nil result
	// is returned to the caller and the transfer has no effect.
	Fail func(c Call) error

	mu      sync.Mutex
	chain   []*device
	tap     *tap.StateMachine
	enabled bool
	shift   pendingShift
	calls   []Call
}

// New builds a simulator advertising 64-byte endpoints in front of devs.
// devs[0] is the device nearest TDO.
func New(devs ...Device) *Sim {
	s := &Sim{
		OutSize: 64,
		InSize:  64,
		tap:     tap.NewStateMachine(),
	}
	for _, d := range devs {
		s.chain = append(s.chain, newDevice(d))
	}
	s.enterState(tap.StateTestLogicReset)
	return s
}

// Calls returns a copy of every transfer served so far.
func (s *Sim) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// ResetCalls clears the call log.
func (s *Sim) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// State reports the simulated TAP state.
func (s *Sim) State() tap.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tap.State()
}

// JTAGEnabled reports whether the host has enabled JTAG mode.
func (s *Sim) JTAGEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Instruction reports the latched IR of device i.
func (s *Sim) Instruction(i int) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain[i].ir
}

func (s *Sim) record(c Call) error {
	s.calls = append(s.calls, c)
	if s.Fail != nil {
		return s.Fail(c)
	}
	return nil
}

// Control serves standard GET_DESCRIPTOR and the NeroJTAG vendor requests.
func (s *Sim) Control(rType, request uint8, value, index uint16, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Kind: CallControl, RType: rType, Request: request, Value: value, Index: index, Len: len(data)}); err != nil {
		return 0, err
	}

	switch {
	case rType == nero.RequestTypeStandardIn && request == nero.RequestGetDescriptor:
		if value != nero.DescriptorConfiguration<<8 {
			return 0, stall("descriptor 0x%04X not supported", value)
		}
		return copy(data, s.descriptor()), nil

	case rType != nero.RequestTypeVendorOut:
		return 0, stall("request type 0x%02X not supported", rType)

	case request == nero.CmdModeStatus:
		if index&nero.ModeJTAG != 0 {
			s.enabled = value&nero.ModeJTAG != 0
		}
		return 0, nil
	}

	if !s.enabled {
		return 0, stall("vendor command 0x%02X with JTAG mode disabled", request)
	}

	switch request {
	case nero.CmdJTAGClockData:
		if len(data) != 4 {
			return 0, stall("begin-shift payload is %d bytes", len(data))
		}
		s.beginShift(binary.LittleEndian.Uint32(data), value)
		return len(data), nil

	case nero.CmdJTAGClockFSM:
		if len(data) != 4 {
			return 0, stall("clock-fsm payload is %d bytes", len(data))
		}
		pattern := binary.LittleEndian.Uint32(data)
		for i := uint16(0); i < value && i < 32; i++ {
			s.clock(false, pattern&(1<<i) != 0)
		}
		return len(data), nil

	case nero.CmdJTAGClock:
		n := uint32(index)<<16 | uint32(value)
		for i := uint32(0); i < n; i++ {
			st := s.tap.State()
			if st == tap.StateRunTestIdle || st == tap.StatePauseDR || st == tap.StatePauseIR {
				break
			}
			s.clock(false, false)
		}
		return 0, nil
	}
	return 0, stall("unknown vendor command 0x%02X", request)
}

// BulkWrite consumes TDI bytes of a data-mode shift.
func (s *Sim) BulkWrite(endpoint uint8, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Kind: CallBulkWrite, Endpoint: endpoint, Len: len(data)}); err != nil {
		return 0, err
	}
	if endpoint != nero.EndpointOut {
		return 0, stall("no OUT endpoint 0x%02X", endpoint)
	}
	if !s.shift.active || s.shift.mode != nero.SendData {
		return 0, stall("unexpected bulk OUT data")
	}
	for _, b := range data {
		out := s.shiftByte(b)
		if s.shift.respond {
			s.shift.tdo = append(s.shift.tdo, out)
		}
	}
	s.finishShift()
	return len(data), nil
}

// BulkRead returns captured TDO bytes, clocking zeros or ones first when
// the shift sends no payload.
func (s *Sim) BulkRead(endpoint uint8, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Kind: CallBulkRead, Endpoint: endpoint, Len: len(data)}); err != nil {
		return 0, err
	}
	if endpoint != nero.EndpointIn {
		return 0, stall("no IN endpoint 0x%02X", endpoint)
	}
	if s.shift.mode != nero.SendData {
		fill := byte(0x00)
		if s.shift.mode == nero.SendOnes {
			fill = 0xFF
		}
		for len(s.shift.tdo) < len(data) && s.shift.active {
			s.shift.tdo = append(s.shift.tdo, s.shiftByte(fill))
		}
	}
	if len(s.shift.tdo) < len(data) {
		return 0, &Fault{Message: "LIBUSB_ERROR_TIMEOUT: no TDO data pending", Errno: ErrnoTimeout}
	}
	n := copy(data, s.shift.tdo)
	s.shift.tdo = s.shift.tdo[n:]
	s.finishShift()
	return n, nil
}

func (s *Sim) beginShift(bits uint32, value uint16) {
	mode, isLast, respond := nero.DecodeShiftValue(value)
	s.shift = pendingShift{
		active:  bits > 0,
		bits:    bits,
		mode:    mode,
		isLast:  isLast,
		respond: respond,
	}
	if mode == nero.SendData || respond {
		return
	}
	fill := byte(0x00)
	if mode == nero.SendOnes {
		fill = 0xFF
	}
	for s.shift.active {
		s.shiftByte(fill)
	}
}

// shiftByte clocks up to eight bits of b, LSB first, and returns the
// captured TDO bits.
func (s *Sim) shiftByte(b byte) byte {
	var out byte
	for i := 0; i < 8 && s.shift.bits > 0; i++ {
		s.shift.bits--
		last := s.shift.bits == 0
		if s.clock(b&(1<<i) != 0, last && s.shift.isLast) {
			out |= 1 << i
		}
	}
	if s.shift.bits == 0 {
		s.shift.active = false
	}
	return out
}

func (s *Sim) finishShift() {
	if !s.shift.active && len(s.shift.tdo) == 0 {
		s.shift = pendingShift{}
	}
}

// clock runs one TCK cycle and returns TDO.
func (s *Sim) clock(tdi, tms bool) bool {
	tdo := false
	switch st := s.tap.State(); st {
	case tap.StateShiftDR, tap.StateShiftIR:
		tdo = s.shiftChain(tdi, st == tap.StateShiftIR)
	}
	s.enterState(s.tap.Clock(tms))
	return tdo
}

// shiftChain moves one bit from TDI through every device toward TDO.
func (s *Sim) shiftChain(tdi, ir bool) bool {
	bit := tdi
	for i := len(s.chain) - 1; i >= 0; i-- {
		bit = s.chain[i].shift(bit, ir)
	}
	return bit
}

func (s *Sim) enterState(st tap.State) {
	for _, d := range s.chain {
		d.enter(st)
	}
}

// descriptor renders the configuration descriptor NeroJTAG firmware reports.
func (s *Sim) descriptor() []byte {
	type ep struct {
		addr byte
		size uint16
	}
	var eps []ep
	if s.OutSize != 0 {
		eps = append(eps, ep{nero.EndpointOut, s.OutSize})
	}
	if s.InSize != 0 {
		eps = append(eps, ep{nero.EndpointIn, s.InSize})
	}
	total := 9 + 9 + 7*len(eps)
	out := make([]byte, 0, total)
	out = append(out, 9, 0x02, byte(total), byte(total>>8), 1, 1, 0, 0x80, 50)
	out = append(out, 9, 0x04, 0, 0, byte(len(eps)), 0xFF, 0, 0, 0)
	for _, e := range eps {
		out = append(out, 7, 0x05, e.addr, 0x02, byte(e.size), byte(e.size>>8), 0)
	}
	return out
}
