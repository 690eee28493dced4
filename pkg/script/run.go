package script

import (
	"encoding/hex"
	"fmt"

	"github.com/OpenTraceLab/nerojtag/pkg/nero"
	"github.com/OpenTraceLab/nerojtag/pkg/tap"
)

// Runner executes the three NeroJTAG operations. *nero.Session satisfies it.
type Runner interface {
	Shift(numBits uint32, src nero.Source, recv []byte, isLast bool) error
	ClockFSM(bitPattern uint32, transitionCount uint8) error
	Clocks(numClocks uint32) error
}

// Capture holds the TDO bits of one "read" shift.
type Capture struct {
	Line int
	Bits uint32
	Data []byte // LSB first
}

// Hex renders the capture as a hex value, most significant byte first, the
// same notation scripts use for data.
func (c Capture) Hex() string {
	b := make([]byte, len(c.Data))
	for i, v := range c.Data {
		b[len(b)-1-i] = v
	}
	return "0x" + hex.EncodeToString(b)
}

// tracker follows the TAP state once a reset has made it known.
type tracker struct {
	sm    *tap.StateMachine
	known bool
}

// clockLow applies n clocks with TMS low and an optional TMS high on the
// last one. TMS low reaches a stable state within a few clocks, so only a
// bounded number are simulated.
func (t *tracker) clockLow(n uint32, lastHigh bool) {
	if !t.known || n == 0 {
		return
	}
	for i := uint32(0); i+1 < n && i < 8; i++ {
		t.sm.Clock(false)
	}
	t.sm.Clock(lastHigh)
}

// Run executes prog against r and returns the captures of every "read"
// shift in program order. Execution stops at the first failing statement.
func Run(r Runner, prog *Program) ([]Capture, error) {
	t := &tracker{sm: tap.NewStateMachine()}
	var captures []Capture
	for _, st := range prog.Statements {
		c, err := t.exec(r, st)
		if err != nil {
			return captures, fmt.Errorf("script: %s: %w", st.Pos, err)
		}
		if c != nil {
			captures = append(captures, *c)
		}
	}
	return captures, nil
}

func (t *tracker) exec(r Runner, st *Statement) (*Capture, error) {
	switch {
	case st.Shift != nil:
		return t.shift(r, st)

	case st.FSM != nil:
		if st.FSM.Count > tap.MaxPatternBits {
			return nil, fmt.Errorf("fsm count %d exceeds %d", st.FSM.Count, tap.MaxPatternBits)
		}
		if st.FSM.Pattern > 0xFFFFFFFF {
			return nil, fmt.Errorf("fsm pattern 0x%X exceeds 32 bits", uint64(st.FSM.Pattern))
		}
		if err := r.ClockFSM(uint32(st.FSM.Pattern), uint8(st.FSM.Count)); err != nil {
			return nil, err
		}
		if t.known {
			t.sm.ClockPattern(uint32(st.FSM.Pattern), uint8(st.FSM.Count))
		}

	case st.Clocks != nil:
		if st.Clocks.N > 0xFFFFFFFF {
			return nil, fmt.Errorf("clock count %d exceeds 32 bits", uint64(st.Clocks.N))
		}
		if err := r.Clocks(uint32(st.Clocks.N)); err != nil {
			return nil, err
		}
		t.clockLow(uint32(st.Clocks.N), false)

	case st.Reset:
		seq := t.sm.Reset()
		pattern, count, err := seq.Pattern()
		if err != nil {
			return nil, err
		}
		if err := r.ClockFSM(pattern, count); err != nil {
			t.known = false
			return nil, err
		}
		t.known = true

	case st.Goto != nil:
		target, err := tap.ParseState(st.Goto.State)
		if err != nil {
			return nil, err
		}
		if !t.known {
			return nil, fmt.Errorf("goto %s: TAP state unknown, reset first", target)
		}
		seq, err := t.sm.PathTo(target)
		if err != nil {
			return nil, err
		}
		if len(seq.TMS) == 0 {
			return nil, nil
		}
		pattern, count, err := seq.Pattern()
		if err != nil {
			return nil, err
		}
		if err := r.ClockFSM(pattern, count); err != nil {
			return nil, err
		}
		t.sm.Force(target)
	}
	return nil, nil
}

func (t *tracker) shift(r Runner, st *Statement) (*Capture, error) {
	s := st.Shift
	if s.Bits > 0xFFFFFFFF {
		return nil, fmt.Errorf("shift length %d exceeds 32 bits", uint64(s.Bits))
	}
	bits := uint32(s.Bits)
	n := nero.BitsToBytes(bits)

	var src nero.Source
	switch {
	case s.Source.Ones:
		src = nero.Ones
	case s.Source.Data != nil:
		if !fits(s.Source.Data, bits) {
			return nil, fmt.Errorf("data %s is wider than %d bits", Capture{Data: s.Source.Data}.Hex(), bits)
		}
		data := make([]byte, n)
		copy(data, s.Source.Data)
		src = nero.Data(data)
	default:
		src = nero.Zeros
	}

	var recv []byte
	if s.Read() {
		recv = make([]byte, n)
	}
	if err := r.Shift(bits, src, recv, s.Last()); err != nil {
		return nil, err
	}
	t.clockLow(bits, s.Last())
	if recv == nil {
		return nil, nil
	}
	return &Capture{Line: st.Pos.Line, Bits: bits, Data: recv}, nil
}

// fits reports whether the little-endian value b has no bits set at or above
// position bits.
func fits(b []byte, bits uint32) bool {
	for i, v := range b {
		lo := uint32(i) * 8
		switch {
		case lo >= bits:
			if v != 0 {
				return false
			}
		case bits-lo < 8:
			if v>>(bits-lo) != 0 {
				return false
			}
		}
	}
	return true
}
