package nero

import (
	"encoding/binary"
	"errors"
)

type callKind int

const (
	callControl callKind = iota
	callBulkWrite
	callBulkRead
)

type call struct {
	kind     callKind
	rType    uint8
	request  uint8
	value    uint16
	index    uint16
	endpoint uint8
	data     []byte
	length   int
}

// codedErr mimics a transport error carrying a libusb code.
type codedErr struct {
	msg  string
	code int
}

func (e codedErr) Error() string { return e.msg }
func (e codedErr) Code() int     { return e.code }

// fakeDev records every transfer and answers GET_DESCRIPTOR with desc.
type fakeDev struct {
	desc   []byte
	calls  []call
	failOn func(n int, c call) error
	// readByte is written into every bulk IN buffer, incremented per byte.
	readByte byte
}

func (f *fakeDev) record(c call) error {
	f.calls = append(f.calls, c)
	if f.failOn != nil {
		return f.failOn(len(f.calls)-1, c)
	}
	return nil
}

func (f *fakeDev) Control(rType, request uint8, value, index uint16, data []byte) (int, error) {
	c := call{kind: callControl, rType: rType, request: request, value: value, index: index, length: len(data)}
	if rType&0x80 == 0 {
		c.data = append([]byte(nil), data...)
	}
	if err := f.record(c); err != nil {
		return 0, err
	}
	if request == RequestGetDescriptor && rType == RequestTypeStandardIn {
		return copy(data, f.desc), nil
	}
	return len(data), nil
}

func (f *fakeDev) BulkWrite(endpoint uint8, data []byte) (int, error) {
	if err := f.record(call{kind: callBulkWrite, endpoint: endpoint, data: append([]byte(nil), data...), length: len(data)}); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (f *fakeDev) BulkRead(endpoint uint8, data []byte) (int, error) {
	if err := f.record(call{kind: callBulkRead, endpoint: endpoint, length: len(data)}); err != nil {
		return 0, err
	}
	for i := range data {
		data[i] = f.readByte
		f.readByte++
	}
	return len(data), nil
}

func (f *fakeDev) count(kind callKind) int {
	n := 0
	for _, c := range f.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

type testEndpoint struct {
	addr  byte
	attrs byte
	size  uint16
}

// buildConfig assembles a configuration descriptor with one interface.
func buildConfig(eps ...testEndpoint) []byte {
	total := 9 + 9 + 7*len(eps)
	out := make([]byte, 0, total)
	cfg := []byte{9, 0x02, 0, 0, 1, 1, 0, 0x80, 50}
	binary.LittleEndian.PutUint16(cfg[2:4], uint16(total))
	out = append(out, cfg...)
	out = append(out, 9, 0x04, 0, 0, byte(len(eps)), 0xFF, 0, 0, 0)
	for _, ep := range eps {
		rec := []byte{7, 0x05, ep.addr, ep.attrs, 0, 0, 0}
		binary.LittleEndian.PutUint16(rec[4:6], ep.size)
		out = append(out, rec...)
	}
	return out
}

func bulkPair(size uint16) []byte {
	return buildConfig(
		testEndpoint{addr: EndpointOut, attrs: 0x02, size: size},
		testEndpoint{addr: EndpointIn, attrs: 0x02, size: size},
	)
}

// openFake returns a session negotiated at chunk bytes with the recorded
// open traffic cleared.
func openFake(chunk uint16) (*Session, *fakeDev) {
	dev := &fakeDev{desc: bulkPair(chunk)}
	s, err := Open(dev)
	if err != nil {
		panic(err)
	}
	dev.calls = nil
	return s, dev
}

var errBoom = errors.New("boom")
