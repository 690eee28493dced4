package nero

import (
	"encoding/binary"
	"fmt"
)

// cursor walks a buffer of length-prefixed descriptor records.
type cursor struct {
	buf []byte
	off int
}

// next returns the record at the cursor and advances past it. The first
// byte of every record is its own length.
func (c *cursor) next() ([]byte, error) {
	remaining := len(c.buf) - c.off
	if remaining < 2 {
		return nil, fmt.Errorf("%w: %d bytes left at offset %d", ErrMalformedDescriptor, remaining, c.off)
	}
	length := int(c.buf[c.off])
	if length < 2 || length > remaining {
		return nil, fmt.Errorf("%w: record length %d at offset %d exceeds %d remaining bytes",
			ErrMalformedDescriptor, length, c.off, remaining)
	}
	rec := c.buf[c.off : c.off+length]
	c.off += length
	return rec, nil
}

// EndpointSizes walks a configuration descriptor blob (configuration,
// interface, then the interface's endpoints) and returns wMaxPacketSize of
// the bulk endpoints at EndpointOut and EndpointIn. A missing endpoint
// reports size 0.
func EndpointSizes(desc []byte) (outSize, inSize uint16, err error) {
	if len(desc) == 0 {
		return 0, 0, nil
	}
	c := cursor{buf: desc}
	if _, err := c.next(); err != nil {
		return 0, 0, err
	}
	iface, err := c.next()
	if err != nil {
		return 0, 0, err
	}
	if len(iface) < 5 {
		return 0, 0, fmt.Errorf("%w: interface descriptor is %d bytes", ErrMalformedDescriptor, len(iface))
	}
	for n := iface[4]; n > 0; n-- {
		ep, err := c.next()
		if err != nil {
			return 0, 0, err
		}
		if len(ep) < endpointDescriptorLength {
			return 0, 0, fmt.Errorf("%w: endpoint descriptor is %d bytes", ErrMalformedDescriptor, len(ep))
		}
		if ep[3]&transferTypeMask != transferTypeBulk {
			continue
		}
		size := binary.LittleEndian.Uint16(ep[4:6])
		switch ep[2] {
		case EndpointOut:
			outSize = size
		case EndpointIn:
			inSize = size
		}
	}
	return outSize, inSize, nil
}

// discoverChunkSize reads the active configuration descriptor and returns
// the common bulk endpoint size. Descriptors longer than DescriptorBufSize
// are truncated by the device and are not supported.
func discoverChunkSize(dev Transport) (uint16, error) {
	const op = "setEndpointSize"
	buf := make([]byte, DescriptorBufSize)
	n, err := dev.Control(RequestTypeStandardIn, RequestGetDescriptor,
		DescriptorConfiguration<<8, 0x0000, buf)
	if err != nil {
		return 0, fail(StatusEndpoints, op, err, "Failed to get config descriptor")
	}
	if n > len(buf) {
		n = len(buf)
	}
	if n < 0 {
		n = 0
	}
	outSize, inSize, err := EndpointSizes(buf[:n])
	if err != nil {
		return 0, fail(StatusEndpoints, op, err, "")
	}
	switch {
	case outSize == 0:
		return 0, fail(StatusEndpoints, op, nil, "EP2OUT not found or not configured as a bulk endpoint")
	case inSize == 0:
		return 0, fail(StatusEndpoints, op, nil, "EP4IN not found or not configured as a bulk endpoint")
	case outSize != inSize:
		return 0, fail(StatusEndpoints, op, nil,
			"EP2OUT's wMaxPacketSize (%d) differs from that of EP4IN (%d)", outSize, inSize)
	}
	return outSize, nil
}
