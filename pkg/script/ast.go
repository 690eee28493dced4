package script

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Program is a parsed script.
type Program struct {
	Statements []*Statement `@@*`
}

// Statement is one command.
//
//	shift <bits> (zeros|ones|<hex>) [read] [last]
//	fsm <pattern> <count>
//	clocks <n>
//	reset
//	goto <state>
type Statement struct {
	Pos lexer.Position

	Shift  *Shift  `  @@`
	FSM    *FSM    `| @@`
	Clocks *Clocks `| @@`
	Reset  bool    `| @"reset"`
	Goto   *Goto   `| @@`
}

// Shift clocks Bits bits of Source through TDI.
type Shift struct {
	Bits   Number   `"shift" @(Hex | Bin | Int)`
	Source Source   `@@`
	Flags  []string `@("read" | "last")*`
}

// Read reports whether the shifted-out bits are captured.
func (s *Shift) Read() bool { return s.has("read") }

// Last reports whether the TAP leaves the shift state on the final bit.
func (s *Shift) Last() bool { return s.has("last") }

func (s *Shift) has(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Source is the TDI side of a shift.
type Source struct {
	Zeros bool     `  @"zeros"`
	Ones  bool     `| @"ones"`
	Data  HexBytes `| @Hex`
}

// FSM clocks Count TMS bits from Pattern, LSB first.
type FSM struct {
	Pattern Number `"fsm" @(Hex | Bin | Int)`
	Count   Number `@(Hex | Bin | Int)`
}

// Clocks toggles TCK N times.
type Clocks struct {
	N Number `"clocks" @(Hex | Bin | Int)`
}

// Goto walks the shortest TMS path to a named TAP state.
type Goto struct {
	State string `"goto" @Ident`
}

// Number is an unsigned literal in decimal, 0x hex or 0b binary, with
// optional underscores.
type Number uint64

// Capture implements participle.Capture.
func (n *Number) Capture(values []string) error {
	v, err := strconv.ParseUint(values[0], 0, 64)
	if err != nil {
		return fmt.Errorf("bad number %q: %w", values[0], err)
	}
	*n = Number(v)
	return nil
}

// HexBytes is a hex literal read as a little-endian bit string: bit 0 of the
// value is shifted first.
type HexBytes []byte

// Capture implements participle.Capture.
func (h *HexBytes) Capture(values []string) error {
	digits := strings.ReplaceAll(values[0][2:], "_", "")
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return fmt.Errorf("bad hex literal %q: %w", values[0], err)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	*h = b
	return nil
}
