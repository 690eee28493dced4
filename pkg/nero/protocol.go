package nero

// Vendor commands understood by NeroJTAG firmware.
const (
	CmdModeStatus     = 0x80
	CmdJTAGClockData  = 0x81
	CmdJTAGClockFSM   = 0x82
	CmdJTAGClock      = 0x83
	ModeJTAG          = 1 << 0
	EndpointOut       = 0x02
	EndpointIn        = 0x84
	DescriptorBufSize = 1024
)

// Standard USB request fields used during capability discovery.
const (
	RequestGetDescriptor     = 0x06
	DescriptorConfiguration  = 0x02
	transferTypeMask         = 0x03
	transferTypeBulk         = 0x02
	endpointDescriptorLength = 7
)

// Request types, laid out as bmRequestType.
const (
	RequestTypeVendorOut  = 0x40 // host-to-device | vendor | device
	RequestTypeStandardIn = 0x80 // device-to-host | standard | device
)

// Bit positions inside the begin-shift wValue.
const (
	flagResponseNeeded = 0
	flagIsLast         = 1
	sendModeShift      = 2
)

// Transport is the raw USB access the driver needs. Implementations own the
// per-transfer timeout and report failures as errors; an error implementing
// Code() int contributes its numeric code to the resulting *Error.
type Transport interface {
	Control(rType, request uint8, value, index uint16, data []byte) (int, error)
	BulkWrite(endpoint uint8, data []byte) (int, error)
	BulkRead(endpoint uint8, data []byte) (int, error)
}

// BitsToBytes returns the number of bytes needed to hold n bits.
func BitsToBytes(n uint32) uint32 {
	bytes := n >> 3
	if n&7 != 0 {
		bytes++
	}
	return bytes
}

// ShiftValue packs the begin-shift wValue.
func ShiftValue(mode SendMode, isLast, responseNeeded bool) uint16 {
	var v uint16
	if responseNeeded {
		v |= 1 << flagResponseNeeded
	}
	if isLast {
		v |= 1 << flagIsLast
	}
	v |= uint16(mode&0x3) << sendModeShift
	return v
}

// DecodeShiftValue is the inverse of ShiftValue.
func DecodeShiftValue(v uint16) (mode SendMode, isLast, responseNeeded bool) {
	return SendMode((v >> sendModeShift) & 0x3), v&(1<<flagIsLast) != 0, v&(1<<flagResponseNeeded) != 0
}
