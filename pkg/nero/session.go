package nero

// Session is the negotiated protocol state on one device. The zero value is
// a closed session. A Session is not safe for concurrent use.
type Session struct {
	dev       Transport
	chunkSize uint16
}

// Open discovers the bulk endpoint size of dev and switches the device into
// JTAG mode. dev stays owned by the caller; the session only borrows it.
func Open(dev Transport) (*Session, error) {
	s := &Session{}
	if err := s.Open(dev); err != nil {
		return nil, err
	}
	return s, nil
}

// Open initialises s on dev. On failure s is left closed.
func (s *Session) Open(dev Transport) (err error) {
	s.dev = dev
	defer func() {
		if err != nil {
			s.reset()
		}
	}()
	if dev == nil {
		return fail(StatusEndpoints, "neroInitialise", ErrNotOpen, "no device")
	}
	size, err := discoverChunkSize(dev)
	if err != nil {
		return err
	}
	s.chunkSize = size
	return s.setJTAGMode(true)
}

// Close releases the JTAG lines and leaves the session closed, whether or
// not the device accepted the request. Closing a closed session succeeds.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	defer s.reset()
	if s.dev == nil {
		return nil
	}
	return s.setJTAGMode(false)
}

// ChunkSize reports the negotiated maximum payload per bulk transfer, or 0
// when the session is closed.
func (s *Session) ChunkSize() uint16 {
	if s == nil {
		return 0
	}
	return s.chunkSize
}

// IsOpen reports whether the session holds a device and a chunk size.
func (s *Session) IsOpen() bool {
	return s != nil && s.dev != nil && s.chunkSize != 0
}

func (s *Session) reset() {
	s.dev = nil
	s.chunkSize = 0
}

// setJTAGMode drives (enable) or tristates the JTAG lines.
func (s *Session) setJTAGMode(enable bool) error {
	var value uint16
	verb := "disable"
	if enable {
		value = ModeJTAG
		verb = "enable"
	}
	_, err := s.dev.Control(RequestTypeVendorOut, CmdModeStatus, value, ModeJTAG, nil)
	if err != nil {
		return fail(StatusEnable, "setJtagMode", err, "Unable to %s JTAG mode", verb)
	}
	return nil
}
