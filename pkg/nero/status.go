package nero

import (
	"errors"
	"fmt"
)

// Status tags the phase an operation failed in.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusUSBInit
	StatusSync
	StatusEndpoints
	StatusClockFSM
	StatusClocks
	StatusBeginShift
	StatusSend
	StatusReceive
	StatusEnable
)

var statusNames = map[Status]string{
	StatusSuccess:    "Success",
	StatusUSBInit:    "UsbInit",
	StatusSync:       "Sync",
	StatusEndpoints:  "Endpoints",
	StatusClockFSM:   "ClockFsm",
	StatusClocks:     "Clocks",
	StatusBeginShift: "BeginShift",
	StatusSend:       "Send",
	StatusReceive:    "Receive",
	StatusEnable:     "Enable",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", s)
}

var (
	// ErrNotOpen is returned when an operation is issued on a session that
	// holds no device or has no negotiated chunk size.
	ErrNotOpen = errors.New("nero: session not open")

	// ErrShortBuffer is returned when a send or receive buffer is smaller
	// than the byte count implied by the requested bit count.
	ErrShortBuffer = errors.New("nero: buffer too short")

	// ErrMalformedDescriptor is returned when a descriptor record declares a
	// length the returned buffer cannot hold.
	ErrMalformedDescriptor = errors.New("nero: malformed descriptor")

	// ErrShortTransfer is returned when a bulk transfer moves fewer bytes
	// than requested.
	ErrShortTransfer = errors.New("nero: short transfer")
)

// Error is the single failure value every driver operation returns.
type Error struct {
	Status Status
	Op     string
	Msg    string
	Code   int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("nero: %s(): %s (%d)", e.Op, msg, e.Code)
	}
	return fmt.Sprintf("nero: %s(): %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf reports the status tag carried by err. A nil error is
// StatusSuccess; an error from outside the driver is reported as StatusSync.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Status
	}
	return StatusSync
}

// codeOf extracts a transport's native error code when it has one.
func codeOf(err error) int {
	var c interface{ Code() int }
	if errors.As(err, &c) {
		return c.Code()
	}
	return 0
}

func fail(status Status, op string, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += err.Error()
	}
	return &Error{
		Status: status,
		Op:     op,
		Msg:    msg,
		Code:   codeOf(err),
		Err:    err,
	}
}
