package idcode

import "fmt"

// IDCode is a decoded IEEE 1149.1 identification register.
type IDCode struct {
	Raw        uint32 // full IDCODE
	Version    uint8  // [31:28]
	PartNumber uint16 // [27:12]
	Bank       uint8  // [11:8] JEP106 continuation count
	Vendor     uint8  // [7:1] JEP106 identity without parity
}

// Parse splits a raw 32-bit IDCODE into its fields.
func Parse(raw uint32) IDCode {
	return IDCode{
		Raw:        raw,
		Version:    uint8(raw >> 28),
		PartNumber: uint16(raw >> 12),
		Bank:       uint8(raw>>8) & 0xF,
		Vendor:     uint8(raw>>1) & 0x7F,
	}
}

// ManufacturerCode is the 11-bit JEP106 field, bank in the upper four bits.
func (id IDCode) ManufacturerCode() uint16 {
	return uint16(id.Bank)<<7 | uint16(id.Vendor)
}

// Valid reports whether the register looks like a real IDCODE: the marker
// bit is set, the identity is not the reserved 0x7F and the value is not the
// all-ones pattern a floating TDO produces.
func (id IDCode) Valid() bool {
	return id.Raw&1 == 1 && id.Vendor != 0x7F && id.Raw != 0xFFFFFFFF
}

// Manufacturer returns the JEP106 name, or a placeholder for unknown codes.
func (id IDCode) Manufacturer() string {
	if m, ok := LookupManufacturer(id.ManufacturerCode()); ok {
		return m.Name
	}
	return fmt.Sprintf("Unknown (bank %d, 0x%02X)", id.Bank+1, id.Vendor)
}

func (id IDCode) String() string {
	return fmt.Sprintf("0x%08X (Mfg: %s, Part: 0x%04X, Ver: %d)",
		id.Raw, id.Manufacturer(), id.PartNumber, id.Version)
}

// Manufacturer is a JEP106 manufacturer entry.
type Manufacturer struct {
	Code         uint16 // bank<<7 | identity
	Name         string
	Abbreviation string
}
