package idcode

import (
	"errors"
	"fmt"
)

// ErrNoTerminator is returned when the captured stream ends before the
// all-ones pattern that marks the end of the chain.
var ErrNoTerminator = errors.New("idcode: chain terminator not found")

// Device is one TAP found in a chain scan. Position 0 is nearest TDO.
type Device struct {
	Position int
	Bypass   bool // no IDCODE register; a single 0 bit was captured
	ID       IDCode
}

func (d Device) String() string {
	if d.Bypass {
		return fmt.Sprintf("#%d BYPASS", d.Position)
	}
	return fmt.Sprintf("#%d %s", d.Position, d.ID)
}

// Split walks a DR stream captured right after Test-Logic-Reset while ones
// were shifted in. A 1 bit starts a 32-bit IDCODE, a 0 bit is a device in
// BYPASS, and 32 consecutive ones end the chain. At most max devices are
// accepted.
func Split(tdo []byte, bits, max int) ([]Device, error) {
	if bits > len(tdo)*8 {
		return nil, fmt.Errorf("idcode: %d bits do not fit in %d bytes", bits, len(tdo))
	}
	bit := func(i int) uint32 {
		return uint32(tdo[i/8]>>(uint(i)%8)) & 1
	}

	var devs []Device
	for pos := 0; pos < bits; {
		if bit(pos) == 0 {
			if len(devs) == max {
				return devs, fmt.Errorf("idcode: more than %d devices in chain", max)
			}
			devs = append(devs, Device{Position: len(devs), Bypass: true})
			pos++
			continue
		}
		if pos+32 > bits {
			break
		}
		var raw uint32
		for i := 0; i < 32; i++ {
			raw |= bit(pos+i) << uint(i)
		}
		if raw == 0xFFFFFFFF {
			return devs, nil
		}
		if len(devs) == max {
			return devs, fmt.Errorf("idcode: more than %d devices in chain", max)
		}
		devs = append(devs, Device{Position: len(devs), ID: Parse(raw)})
		pos += 32
	}
	return devs, ErrNoTerminator
}

// ScanBits is the DR length needed to scan up to max devices and see the
// terminator.
func ScanBits(max int) int {
	return (max + 1) * 32
}
