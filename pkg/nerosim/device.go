package nerosim

import "github.com/OpenTraceLab/nerojtag/pkg/tap"

// DefaultIDCodeOpcode is the IDCODE instruction used when Device leaves
// IDCodeOpcode unset.
const DefaultIDCodeOpcode = 0x1

// Device describes one simulated TAP in the chain.
type Device struct {
	// IDCode is the 32-bit identification register. Zero models a device
	// without one, which selects BYPASS after reset.
	IDCode uint32
	// IRLength is the instruction register width in bits (2..32).
	IRLength int
	// IDCodeOpcode selects the IDCODE register.
	IDCodeOpcode uint32
}

// register is a shift register of n bits; bit 0 is nearest TDO.
type register struct {
	val uint64
	n   int
}

func (r *register) shift(in bool) bool {
	out := r.val&1 != 0
	r.val >>= 1
	if in {
		r.val |= 1 << uint(r.n-1)
	}
	return out
}

type device struct {
	Device
	ir    uint32
	irReg register
	drReg register
}

func newDevice(d Device) *device {
	if d.IRLength < 2 {
		d.IRLength = 2
	}
	if d.IRLength > 32 {
		d.IRLength = 32
	}
	if d.IDCodeOpcode == 0 {
		d.IDCodeOpcode = DefaultIDCodeOpcode
	}
	return &device{
		Device: d,
		irReg:  register{n: d.IRLength},
		drReg:  register{n: 1},
	}
}

func (d *device) bypass() uint32 {
	return uint32(1)<<uint(d.IRLength) - 1
}

func (d *device) shift(in, ir bool) bool {
	if ir {
		return d.irReg.shift(in)
	}
	return d.drReg.shift(in)
}

// enter applies the register actions tied to a TAP state.
func (d *device) enter(st tap.State) {
	switch st {
	case tap.StateTestLogicReset:
		if d.IDCode != 0 {
			d.ir = d.IDCodeOpcode
		} else {
			d.ir = d.bypass()
		}
	case tap.StateCaptureIR:
		// IEEE 1149.1 requires the two LSBs captured as 01.
		d.irReg = register{val: 0b01, n: d.IRLength}
	case tap.StateUpdateIR:
		d.ir = uint32(d.irReg.val)
	case tap.StateCaptureDR:
		if d.IDCode != 0 && d.ir == d.IDCodeOpcode {
			d.drReg = register{val: uint64(d.IDCode), n: 32}
		} else {
			d.drReg = register{val: 0, n: 1}
		}
	}
}
