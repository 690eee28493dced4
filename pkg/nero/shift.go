package nero

import (
	"encoding/binary"
	"fmt"
)

// SendMode selects what the device clocks into TDI during a shift.
type SendMode uint8

const (
	SendZeros SendMode = iota
	SendOnes
	SendData
	// SendMask is reserved by the protocol. Nothing in this package emits it.
	SendMask
)

func (m SendMode) String() string {
	switch m {
	case SendZeros:
		return "zeros"
	case SendOnes:
		return "ones"
	case SendData:
		return "data"
	case SendMask:
		return "mask"
	default:
		return fmt.Sprintf("SendMode(%d)", uint8(m))
	}
}

// Source is the TDI side of a shift. The zero value shifts zeros.
type Source struct {
	mode SendMode
	data []byte
}

var (
	// Zeros shifts logical zeros without transmitting any payload.
	Zeros = Source{mode: SendZeros}
	// Ones shifts logical ones without transmitting any payload.
	Ones = Source{mode: SendOnes}
)

// Data shifts the bits of b, LSB of b[0] first.
func Data(b []byte) Source {
	return Source{mode: SendData, data: b}
}

// Mode reports how the source is sent.
func (s Source) Mode() SendMode {
	return s.mode
}

// Bytes returns the payload of a Data source and nil otherwise.
func (s Source) Bytes() []byte {
	return s.data
}

// Shift clocks numBits bits from src into TDI while capturing TDO into recv.
// A nil recv means the caller does not want the shifted-out bits. When isLast
// is set the TAP leaves Shift-DR/IR on the final bit.
func (s *Session) Shift(numBits uint32, src Source, recv []byte, isLast bool) error {
	if !s.IsOpen() {
		return fail(StatusBeginShift, "neroShift", ErrNotOpen, "")
	}
	numBytes := BitsToBytes(numBits)
	if src.mode == SendData && uint32(len(src.data)) < numBytes {
		return fail(StatusSend, "neroShift", ErrShortBuffer,
			"send buffer holds %d bytes, %d bits need %d", len(src.data), numBits, numBytes)
	}
	responseNeeded := recv != nil
	if responseNeeded && uint32(len(recv)) < numBytes {
		return fail(StatusReceive, "neroShift", ErrShortBuffer,
			"receive buffer holds %d bytes, %d bits need %d", len(recv), numBits, numBytes)
	}

	if err := s.beginShift(numBits, src.mode, isLast, responseNeeded); err != nil {
		return err
	}

	var offset uint32
	for numBytes > 0 {
		chunk := uint32(s.chunkSize)
		if numBytes < chunk {
			chunk = numBytes
		}
		if src.mode == SendData {
			if err := s.doSend(src.data[offset : offset+chunk]); err != nil {
				return err
			}
		}
		if responseNeeded {
			if err := s.doReceive(recv[offset : offset+chunk]); err != nil {
				return err
			}
		}
		offset += chunk
		numBytes -= chunk
	}
	return nil
}

// beginShift tells the device how many bits follow and how to treat them.
func (s *Session) beginShift(numBits uint32, mode SendMode, isLast, responseNeeded bool) error {
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], numBits)
	_, err := s.dev.Control(RequestTypeVendorOut, CmdJTAGClockData,
		ShiftValue(mode, isLast, responseNeeded), 0x0000, payload[:])
	if err != nil {
		return fail(StatusBeginShift, "beginShift", err, "")
	}
	return nil
}

func (s *Session) doSend(chunk []byte) error {
	n, err := s.dev.BulkWrite(EndpointOut, chunk)
	if err != nil {
		return fail(StatusSend, "doSend", err, "")
	}
	if n != len(chunk) {
		return fail(StatusSend, "doSend", ErrShortTransfer, "wrote %d of %d bytes", n, len(chunk))
	}
	return nil
}

func (s *Session) doReceive(chunk []byte) error {
	n, err := s.dev.BulkRead(EndpointIn, chunk)
	if err != nil {
		return fail(StatusReceive, "doReceive", err, "")
	}
	if n != len(chunk) {
		return fail(StatusReceive, "doReceive", ErrShortTransfer, "read %d of %d bytes", n, len(chunk))
	}
	return nil
}
