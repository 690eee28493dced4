// Package nero drives the NeroJTAG USB protocol: a vendor-defined set of
// control and bulk transfers that tunnel a JTAG TAP through a USB device.
//
// A Session negotiates the bulk transfer size from the device's configuration
// descriptor, enables the JTAG lines, and then exposes three operations:
//
//	s, err := nero.Open(dev)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	tdo := make([]byte, 4)
//	err = s.Shift(32, nero.Ones, tdo, true) // shift 32 ones, keep TDO
//	err = s.ClockFSM(0x1F, 5)               // five TMS=1 clocks
//	err = s.Clocks(100)                     // free-run TCK
//
// The package does no device matching, logging or retrying. Every failure is
// a *Error whose Status names the phase that failed.
package nero
