package tap

import "fmt"

// MaxPatternBits is the most TMS transitions one packed pattern can carry.
const MaxPatternBits = 32

// Pattern packs the TMS bits of the sequence LSB first, the form hardware
// that clocks TMS from a 32-bit word expects.
func (s Sequence) Pattern() (bits uint32, count uint8, err error) {
	return PackTMS(s.TMS)
}

// PackTMS packs up to MaxPatternBits TMS values, first transition in bit 0.
func PackTMS(tms []bool) (uint32, uint8, error) {
	if len(tms) > MaxPatternBits {
		return 0, 0, fmt.Errorf("tap: %d transitions exceed the %d-bit pattern limit", len(tms), MaxPatternBits)
	}
	var bits uint32
	for i, b := range tms {
		if b {
			bits |= 1 << uint(i)
		}
	}
	return bits, uint8(len(tms)), nil
}

// ClockPattern applies count bits of pattern, LSB first, and returns the
// resulting state.
func (m *StateMachine) ClockPattern(pattern uint32, count uint8) State {
	for i := uint8(0); i < count && i < MaxPatternBits; i++ {
		m.Clock(pattern&(1<<i) != 0)
	}
	return m.state
}
