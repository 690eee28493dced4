package idcode

// jep106 maps bank<<7|identity onto manufacturer names. Only vendors that
// commonly show up on JTAG chains are listed.
var jep106 = map[uint16]Manufacturer{
	0x001: {Name: "AMD", Abbreviation: "AMD"},
	0x009: {Name: "Intel", Abbreviation: "Intel"},
	0x00E: {Name: "Freescale (Motorola)", Abbreviation: "Freescale"},
	0x015: {Name: "NXP (Philips)", Abbreviation: "NXP"},
	0x017: {Name: "Texas Instruments", Abbreviation: "TI"},
	0x01F: {Name: "Atmel", Abbreviation: "Atmel"},
	0x020: {Name: "STMicroelectronics", Abbreviation: "STM"},
	0x021: {Name: "Lattice Semiconductor", Abbreviation: "Lattice"},
	0x029: {Name: "Microchip Technology", Abbreviation: "Microchip"},
	0x034: {Name: "Cypress", Abbreviation: "Cypress"},
	0x041: {Name: "Infineon", Abbreviation: "Infineon"},
	0x049: {Name: "Xilinx", Abbreviation: "Xilinx"},
	0x065: {Name: "Analog Devices", Abbreviation: "ADI"},
	0x06E: {Name: "Altera", Abbreviation: "Altera"},
	0x23B: {Name: "ARM Ltd", Abbreviation: "ARM"},
	0x40D: {Name: "Gowin Semiconductor", Abbreviation: "Gowin"},
	0x489: {Name: "SiFive", Abbreviation: "SiFive"},
}

// LookupManufacturer returns the entry for a JEP106 code.
func LookupManufacturer(code uint16) (Manufacturer, bool) {
	m, ok := jep106[code]
	if ok {
		m.Code = code
	}
	return m, ok
}
