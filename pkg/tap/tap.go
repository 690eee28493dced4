package tap

import (
	"fmt"
)

// State represents one of the 16 defined IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR

	numStates
)

var stateNames = [numStates]string{
	StateTestLogicReset: "TestLogicReset",
	StateRunTestIdle:    "RunTestIdle",
	StateSelectDRScan:   "SelectDRScan",
	StateCaptureDR:      "CaptureDR",
	StateShiftDR:        "ShiftDR",
	StateExit1DR:        "Exit1DR",
	StatePauseDR:        "PauseDR",
	StateExit2DR:        "Exit2DR",
	StateUpdateDR:       "UpdateDR",
	StateSelectIRScan:   "SelectIRScan",
	StateCaptureIR:      "CaptureIR",
	StateShiftIR:        "ShiftIR",
	StateExit1IR:        "Exit1IR",
	StatePauseIR:        "PauseIR",
	StateExit2IR:        "Exit2IR",
	StateUpdateIR:       "UpdateIR",
}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Valid reports whether s is one of the 16 TAP states.
func (s State) Valid() bool {
	return s < numStates
}

// ParseState looks a state up by its String name, case-sensitively.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return State(s), nil
		}
	}
	return 0, fmt.Errorf("tap: unknown state %q", name)
}

// Stable reports whether holding TMS at its resting level keeps the
// controller in s.
func (s State) Stable() bool {
	switch s {
	case StateTestLogicReset, StateRunTestIdle, StateShiftDR, StatePauseDR, StateShiftIR, StatePauseIR:
		return true
	}
	return false
}

// Sequence captures the TMS drive pattern and the sequence of states that result
// from applying that pattern to the TAP controller.
type Sequence struct {
	TMS    []bool
	States []State
}

// transitions[s] holds the next state for TMS=0 and TMS=1.
var transitions = [numStates][2]State{
	StateTestLogicReset: {StateRunTestIdle, StateTestLogicReset},
	StateRunTestIdle:    {StateRunTestIdle, StateSelectDRScan},
	StateSelectDRScan:   {StateCaptureDR, StateSelectIRScan},
	StateCaptureDR:      {StateShiftDR, StateExit1DR},
	StateShiftDR:        {StateShiftDR, StateExit1DR},
	StateExit1DR:        {StatePauseDR, StateUpdateDR},
	StatePauseDR:        {StatePauseDR, StateExit2DR},
	StateExit2DR:        {StateShiftDR, StateUpdateDR},
	StateUpdateDR:       {StateRunTestIdle, StateSelectDRScan},
	StateSelectIRScan:   {StateCaptureIR, StateTestLogicReset},
	StateCaptureIR:      {StateShiftIR, StateExit1IR},
	StateShiftIR:        {StateShiftIR, StateExit1IR},
	StateExit1IR:        {StatePauseIR, StateUpdateIR},
	StatePauseIR:        {StatePauseIR, StateExit2IR},
	StateExit2IR:        {StateShiftIR, StateUpdateIR},
	StateUpdateIR:       {StateRunTestIdle, StateSelectDRScan},
}

// NextState returns the next TAP state after clocking TCK with the provided TMS
// value. It panics on an invalid state, which the exported API never produces.
func NextState(current State, tms bool) State {
	if !current.Valid() {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	if tms {
		return transitions[current][1]
	}
	return transitions[current][0]
}

// StateMachine tracks the TAP controller state locally. It does not perform any
// I/O; it produces the TMS sequences a driver must clock separately.
type StateMachine struct {
	state State
}

// NewStateMachine creates a TAP state machine initialized to Test-Logic-Reset.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateTestLogicReset}
}

// State reports the current TAP state tracked by the machine.
func (m *StateMachine) State() State {
	return m.state
}

// Force overrides the tracked state, e.g. after the hardware moved the TAP
// on its own at the end of a shift.
func (m *StateMachine) Force(s State) {
	m.state = s
}

// Clock advances the machine one TCK cycle with the provided TMS bit and
// returns the new state.
func (m *StateMachine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// Reset clocks five consecutive TMS=1 cycles, which reaches Test-Logic-Reset
// from any state, and returns the sequence for forwarding to hardware.
func (m *StateMachine) Reset() Sequence {
	seq := Sequence{
		TMS:    make([]bool, 5),
		States: make([]State, 6),
	}
	seq.States[0] = m.state
	for i := 0; i < 5; i++ {
		seq.TMS[i] = true
		seq.States[i+1] = m.Clock(true)
	}
	return seq
}

// GoTo computes the shortest TMS sequence from the current state to target,
// applies it to the machine and returns it.
func (m *StateMachine) GoTo(target State) (Sequence, error) {
	path, err := computePath(m.state, target)
	if err != nil {
		return Sequence{}, err
	}
	for _, bit := range path.TMS {
		m.Clock(bit)
	}
	return path, nil
}

// PathTo computes the shortest sequence from the current state to target
// without moving the machine.
func (m *StateMachine) PathTo(target State) (Sequence, error) {
	return computePath(m.state, target)
}

// computePath runs a BFS over the TAP state diagram.
func computePath(from, to State) (Sequence, error) {
	if !from.Valid() {
		return Sequence{}, fmt.Errorf("tap: invalid start state %d", from)
	}
	if !to.Valid() {
		return Sequence{}, fmt.Errorf("tap: invalid target state %d", to)
	}
	if from == to {
		return Sequence{States: []State{from}}, nil
	}

	var seen [numStates]bool
	var via [numStates]step
	seen[from] = true
	queue := []State{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, bit := range []bool{false, true} {
			next := NextState(cur, bit)
			if seen[next] {
				continue
			}
			seen[next] = true
			via[next] = step{prev: cur, tms: bit}
			if next == to {
				return unwind(from, to, via[:]), nil
			}
			queue = append(queue, next)
		}
	}
	return Sequence{}, fmt.Errorf("tap: no path from %s to %s", from, to)
}

// step records how BFS first reached a state.
type step struct {
	prev State
	tms  bool
}

func unwind(from, to State, via []step) Sequence {
	var tms []bool
	states := []State{to}
	for s := to; s != from; s = via[s].prev {
		tms = append(tms, via[s].tms)
		states = append(states, via[s].prev)
	}
	for i, j := 0, len(tms)-1; i < j; i, j = i+1, j-1 {
		tms[i], tms[j] = tms[j], tms[i]
	}
	for i, j := 0, len(states)-1; i < j; i, j = i+1, j-1 {
		states[i], states[j] = states[j], states[i]
	}
	return Sequence{TMS: tms, States: states}
}
