package nero

import "encoding/binary"

// ClockFSM clocks transitionCount bits of bitPattern into TMS, LSB first.
// A count of zero is accepted and moves nothing.
func (s *Session) ClockFSM(bitPattern uint32, transitionCount uint8) error {
	if s == nil || s.dev == nil {
		return fail(StatusClockFSM, "neroClockFSM", ErrNotOpen, "")
	}
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], bitPattern)
	_, err := s.dev.Control(RequestTypeVendorOut, CmdJTAGClockFSM,
		uint16(transitionCount), 0x0000, payload[:])
	if err != nil {
		return fail(StatusClockFSM, "neroClockFSM", err, "")
	}
	return nil
}

// Clocks toggles TCK numClocks times without shifting data.
func (s *Session) Clocks(numClocks uint32) error {
	if s == nil || s.dev == nil {
		return fail(StatusClocks, "neroClocks", ErrNotOpen, "")
	}
	_, err := s.dev.Control(RequestTypeVendorOut, CmdJTAGClock,
		uint16(numClocks&0xFFFF), uint16(numClocks>>16), nil)
	if err != nil {
		return fail(StatusClocks, "neroClocks", err, "")
	}
	return nil
}
