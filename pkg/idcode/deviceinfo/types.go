package deviceinfo

import "github.com/OpenTraceLab/nerojtag/pkg/idcode"

// Kind is the broad class of a chain device.
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindMCU     Kind = "mcu"
	KindFPGA    Kind = "fpga"
	KindDebug   Kind = "debug-port"
)

// DeviceInfo describes a known part.
type DeviceInfo struct {
	IDCode idcode.IDCode

	Name        string // "STM32F40x/41x"
	Family      string // "STM32F4"
	Description string
	Kind        Kind

	// IRLength is the instruction register width in bits, 0 if unknown.
	IRLength int
}

// Known reports whether the entry came from the database.
func (d DeviceInfo) Known() bool {
	return d.Kind != KindUnknown
}
