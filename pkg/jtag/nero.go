package jtag

import (
	"fmt"
	"sync"

	"github.com/OpenTraceLab/nerojtag/pkg/idcode"
	"github.com/OpenTraceLab/nerojtag/pkg/nero"
	"github.com/OpenTraceLab/nerojtag/pkg/tap"
)

// NeroAdapter implements the Adapter interface on top of a NeroJTAG session.
// The TAP state is tracked locally; a failed transfer leaves it unknown until
// the next ResetTAP.
type NeroAdapter struct {
	session *nero.Session
	tap     *tap.StateMachine

	mu sync.Mutex
}

// NewNeroAdapter wraps an open session and soft-resets the TAP so the tracked
// state matches the hardware.
func NewNeroAdapter(s *nero.Session) (*NeroAdapter, error) {
	if !s.IsOpen() {
		return nil, fmt.Errorf("jtag: %w", nero.ErrNotOpen)
	}
	a := &NeroAdapter{
		session: s,
		tap:     tap.NewStateMachine(),
	}
	if err := a.softReset(); err != nil {
		return nil, fmt.Errorf("TAP reset failed: %w", err)
	}
	return a, nil
}

// Session exposes the underlying session for raw protocol access. Raw use
// invalidates the tracked TAP state; call ResetTAP afterwards.
func (a *NeroAdapter) Session() *nero.Session {
	return a.session
}

// State reports the tracked TAP state.
func (a *NeroAdapter) State() tap.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tap.State()
}

// Info returns adapter capabilities
func (a *NeroAdapter) Info() (AdapterInfo, error) {
	return AdapterInfo{
		Name:       "NeroJTAG",
		ChunkSize:  int(a.session.ChunkSize()),
		FixedClock: true,
		Notes:      "TMS/TDI tunnelled over vendor bulk transfers",
	}, nil
}

// ShiftIR shifts data into the instruction register. A nil tdi shifts ones,
// which selects BYPASS on every compliant device.
func (a *NeroAdapter) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := ValidateShiftBuffers(tms, tdi, bits); err != nil {
		return nil, err
	}
	if len(tms) > 0 {
		return a.clockRaw(tms, tdi, bits)
	}
	return a.scan(ShiftRegionIR, tdi, bits)
}

// ShiftDR shifts data into the data register. A nil tdi shifts zeros.
func (a *NeroAdapter) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := ValidateShiftBuffers(tms, tdi, bits); err != nil {
		return nil, err
	}
	if len(tms) > 0 {
		return a.clockRaw(tms, tdi, bits)
	}
	return a.scan(ShiftRegionDR, tdi, bits)
}

// scan performs a complete IR or DR scan ending in Run-Test/Idle.
func (a *NeroAdapter) scan(region ShiftRegion, tdi []byte, bits int) ([]byte, error) {
	shiftState, exitState := tap.StateShiftDR, tap.StateExit1DR
	src := nero.Zeros
	if region == ShiftRegionIR {
		shiftState, exitState = tap.StateShiftIR, tap.StateExit1IR
		src = nero.Ones
	}
	if tdi != nil {
		src = nero.Data(tdi)
	}

	if err := a.goTo(shiftState); err != nil {
		return nil, err
	}
	tdo := make([]byte, (bits+7)/8)
	if err := a.session.Shift(uint32(bits), src, tdo, true); err != nil {
		return nil, fmt.Errorf("shift %s failed: %w", region, err)
	}
	a.tap.Force(exitState)
	if err := a.goTo(tap.StateRunTestIdle); err != nil {
		return nil, err
	}
	return tdo, nil
}

// clockRaw clocks bits with per-bit TMS. Runs spent in Shift-DR/IR go through
// the shift engine, ending on the first TMS=1 bit; everything else is packed
// into ClockFSM patterns. TDI is ignored and TDO reads 0 outside shift states.
func (a *NeroAdapter) clockRaw(tms, tdi []byte, bits int) ([]byte, error) {
	tdo := make([]byte, (bits+7)/8)
	for pos := 0; pos < bits; {
		st := a.tap.State()
		if st == tap.StateShiftDR || st == tap.StateShiftIR {
			n := 0
			for pos+n < bits && !bitAt(tms, pos+n) {
				n++
			}
			last := pos+n < bits
			if last {
				n++
			}
			src := nero.Zeros
			if tdi != nil {
				src = nero.Data(sliceBits(tdi, pos, n))
			}
			recv := make([]byte, (n+7)/8)
			if err := a.session.Shift(uint32(n), src, recv, last); err != nil {
				return nil, fmt.Errorf("shift failed: %w", err)
			}
			copyBits(tdo, pos, recv, 0, n)
			if last {
				a.tap.Clock(true)
			}
			pos += n
			continue
		}

		var pattern uint32
		var count uint8
		for pos < bits && count < tap.MaxPatternBits {
			b := bitAt(tms, pos)
			if b {
				pattern |= 1 << count
			}
			count++
			pos++
			if s := a.tap.Clock(b); s == tap.StateShiftDR || s == tap.StateShiftIR {
				break
			}
		}
		if err := a.session.ClockFSM(pattern, count); err != nil {
			return nil, fmt.Errorf("TMS sequence failed: %w", err)
		}
	}
	return tdo, nil
}

// goTo walks the shortest TMS path to target.
func (a *NeroAdapter) goTo(target tap.State) error {
	seq, err := a.tap.PathTo(target)
	if err != nil {
		return err
	}
	if len(seq.TMS) == 0 {
		return nil
	}
	pattern, count, err := seq.Pattern()
	if err != nil {
		return err
	}
	if err := a.session.ClockFSM(pattern, count); err != nil {
		return fmt.Errorf("move to %s failed: %w", target, err)
	}
	a.tap.Force(target)
	return nil
}

func (a *NeroAdapter) softReset() error {
	seq := a.tap.Reset()
	pattern, count, err := seq.Pattern()
	if err != nil {
		return err
	}
	return a.session.ClockFSM(pattern, count)
}

// ResetTAP resets the JTAG TAP state machine. NeroJTAG has no reset lines,
// so a hard reset is not available.
func (a *NeroAdapter) ResetTAP(hard bool) error {
	if hard {
		return ErrNotImplemented
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.softReset(); err != nil {
		return fmt.Errorf("TAP reset failed: %w", err)
	}
	return nil
}

// SetSpeed is not supported; the firmware fixes TCK.
func (a *NeroAdapter) SetSpeed(hz int) error {
	return ErrNotImplemented
}

// RunTest parks the TAP in Run-Test/Idle and clocks n TCK cycles there.
func (a *NeroAdapter) RunTest(n uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.goTo(tap.StateRunTestIdle); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if err := a.session.Clocks(n); err != nil {
		return fmt.Errorf("run-test failed: %w", err)
	}
	return nil
}

// ScanIDCodes resets the chain, reads the IDCODE/BYPASS registers every
// device selects after reset and returns up to max devices, nearest TDO
// first.
func (a *NeroAdapter) ScanIDCodes(max int) ([]idcode.Device, error) {
	if max <= 0 {
		return nil, fmt.Errorf("jtag: max devices must be positive, got %d", max)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.softReset(); err != nil {
		return nil, fmt.Errorf("TAP reset failed: %w", err)
	}
	if err := a.goTo(tap.StateShiftDR); err != nil {
		return nil, err
	}
	bits := idcode.ScanBits(max)
	tdo := make([]byte, (bits+7)/8)
	if err := a.session.Shift(uint32(bits), nero.Ones, tdo, true); err != nil {
		return nil, fmt.Errorf("read IDCODE failed: %w", err)
	}
	a.tap.Force(tap.StateExit1DR)
	if err := a.goTo(tap.StateRunTestIdle); err != nil {
		return nil, err
	}
	return idcode.Split(tdo, bits, max)
}

// Close disables JTAG mode. The transport stays open.
func (a *NeroAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Close()
}
