// Package usbdev opens a NeroJTAG probe with gousb and exposes it as a
// nero.Transport.
package usbdev

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/nerojtag/internal/logging"
	"github.com/OpenTraceLab/nerojtag/pkg/nero"
)

const (
	// NeroJTAG USB identifiers
	VendorID  = 0x1443
	ProductID = 0x0007

	DefaultTimeout = 5 * time.Second
)

// TransferError reports a failed USB transfer together with the libusb
// error number it maps to.
type TransferError struct {
	Op       string
	Endpoint uint8
	Errno    int
	Err      error
}

func (e *TransferError) Error() string {
	if e.Endpoint != 0 {
		return fmt.Sprintf("usb %s ep 0x%02X: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("usb %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Code reports the libusb error number, 0 when unknown.
func (e *TransferError) Code() int { return e.Errno }

// errno maps gousb failures onto libusb error numbers.
func errno(err error) int {
	var ue gousb.Error
	if errors.As(err, &ue) {
		return int(ue)
	}
	var ts gousb.TransferStatus
	if errors.As(err, &ts) {
		switch ts {
		case gousb.TransferTimedOut, gousb.TransferCancelled:
			return int(gousb.ErrorTimeout)
		case gousb.TransferStall:
			return int(gousb.ErrorPipe)
		case gousb.TransferNoDevice:
			return int(gousb.ErrorNoDevice)
		case gousb.TransferOverflow:
			return int(gousb.ErrorOverflow)
		}
		return int(gousb.ErrorIO)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return int(gousb.ErrorTimeout)
	}
	return 0
}

type controller interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

type outEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

type inEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// claimFunc claims the JTAG interface and opens its bulk endpoints. The
// returned release func undoes the claim.
type claimFunc func() (outEndpoint, inEndpoint, func(), error)

// Option configures Open.
type Option func(*Device)

// WithTimeout sets the control and bulk transfer timeout.
func WithTimeout(d time.Duration) Option {
	return func(dev *Device) {
		if d > 0 {
			dev.timeout = d
		}
	}
}

// Device is an open NeroJTAG probe. It implements nero.Transport.
type Device struct {
	ctx *gousb.Context
	dev *gousb.Device

	ctrl    controller
	claim   claimFunc
	release func()
	out     outEndpoint
	in      inEndpoint

	timeout time.Duration
	vid     uint16
	pid     uint16

	mu sync.Mutex
}

// Open finds the first device matching vid:pid. The interface is claimed on
// the first bulk transfer, so descriptor discovery and mode changes work
// even while another process holds it.
func Open(vid, pid uint16, opts ...Option) (*Device, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, initError(err, "Unable to open device %04X:%04X", vid, pid)
	}
	if dev == nil {
		ctx.Close()
		return nil, initError(nil, "device %04X:%04X not found", vid, pid)
	}

	// Not supported on every platform.
	if err := dev.SetAutoDetach(true); err != nil {
		logging.Debug(logging.ComponentUSB, "auto-detach unavailable", "err", err)
	}

	d := &Device{
		ctx:     ctx,
		dev:     dev,
		ctrl:    dev,
		timeout: DefaultTimeout,
		vid:     vid,
		pid:     pid,
	}
	d.claim = d.claimDefaultInterface
	for _, opt := range opts {
		opt(d)
	}
	dev.ControlTimeout = d.timeout

	logging.Info(logging.ComponentUSB, "device opened", "id", d.ID())
	return d, nil
}

func initError(err error, format string, args ...any) *nero.Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + err.Error()
	}
	return &nero.Error{
		Status: nero.StatusUSBInit,
		Op:     "usbOpen",
		Msg:    msg,
		Code:   errno(err),
		Err:    err,
	}
}

func (d *Device) claimDefaultInterface() (outEndpoint, inEndpoint, func(), error) {
	intf, done, err := d.dev.DefaultInterface()
	if err != nil {
		return nil, nil, nil, err
	}
	out, err := intf.OutEndpoint(int(nero.EndpointOut & 0x0F))
	if err != nil {
		done()
		return nil, nil, nil, fmt.Errorf("failed to open OUT endpoint: %w", err)
	}
	in, err := intf.InEndpoint(int(nero.EndpointIn & 0x0F))
	if err != nil {
		done()
		return nil, nil, nil, fmt.Errorf("failed to open IN endpoint: %w", err)
	}
	return out, in, done, nil
}

// ID renders the device's VID:PID.
func (d *Device) ID() string {
	return FormatID(d.vid, d.pid)
}

func (d *Device) ensureClaimed() error {
	if d.out != nil {
		return nil
	}
	if d.claim == nil {
		return errors.New("device closed")
	}
	out, in, release, err := d.claim()
	if err != nil {
		return err
	}
	d.out, d.in, d.release = out, in, release
	logging.Debug(logging.ComponentUSB, "interface claimed", "id", d.ID())
	return nil
}

// Control issues a control transfer on endpoint 0.
func (d *Device) Control(rType, request uint8, value, index uint16, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctrl == nil {
		return 0, &TransferError{Op: "control", Err: errors.New("device closed")}
	}
	n, err := d.ctrl.Control(rType, request, value, index, data)
	logging.Debug(logging.ComponentUSB, "control",
		"rtype", rType, "request", request, "value", value, "index", index, "len", len(data), "n", n, "err", err)
	if err != nil {
		return n, &TransferError{Op: "control", Errno: errno(err), Err: err}
	}
	return n, nil
}

// BulkWrite sends data on the OUT endpoint.
func (d *Device) BulkWrite(endpoint uint8, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if endpoint != nero.EndpointOut {
		return 0, &TransferError{Op: "bulk write", Endpoint: endpoint, Errno: int(gousb.ErrorNotFound), Err: gousb.ErrorNotFound}
	}
	if err := d.ensureClaimed(); err != nil {
		return 0, &TransferError{Op: "bulk write", Endpoint: endpoint, Errno: errno(err), Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	n, err := d.out.WriteContext(ctx, data)
	logging.Debug(logging.ComponentUSB, "bulk write", "ep", endpoint, "len", len(data), "n", n, "err", err)
	if err != nil {
		return n, &TransferError{Op: "bulk write", Endpoint: endpoint, Errno: errno(err), Err: err}
	}
	return n, nil
}

// BulkRead fills data from the IN endpoint.
func (d *Device) BulkRead(endpoint uint8, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if endpoint != nero.EndpointIn {
		return 0, &TransferError{Op: "bulk read", Endpoint: endpoint, Errno: int(gousb.ErrorNotFound), Err: gousb.ErrorNotFound}
	}
	if err := d.ensureClaimed(); err != nil {
		return 0, &TransferError{Op: "bulk read", Endpoint: endpoint, Errno: errno(err), Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	n, err := d.in.ReadContext(ctx, data)
	logging.Debug(logging.ComponentUSB, "bulk read", "ep", endpoint, "len", len(data), "n", n, "err", err)
	if err != nil {
		return n, &TransferError{Op: "bulk read", Endpoint: endpoint, Errno: errno(err), Err: err}
	}
	return n, nil
}

// Close releases the interface, the device and the libusb context.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release != nil {
		d.release()
		d.release = nil
	}
	d.out, d.in, d.claim, d.ctrl = nil, nil, nil, nil

	var err error
	if d.dev != nil {
		err = d.dev.Close()
		d.dev = nil
	}
	if d.ctx != nil {
		if cerr := d.ctx.Close(); err == nil {
			err = cerr
		}
		d.ctx = nil
	}
	return err
}

// FormatID renders vid:pid as four-digit hex pairs.
func FormatID(vid, pid uint16) string {
	return fmt.Sprintf("%04x:%04x", vid, pid)
}

// ParseID parses a "VVVV:PPPP" hexadecimal vendor:product pair.
func ParseID(s string) (vid, pid uint16, err error) {
	v, p, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("usbdev: %q is not VID:PID", s)
	}
	vv, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(v), "0x"), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("usbdev: bad vendor id %q: %w", v, err)
	}
	pp, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(p), "0x"), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("usbdev: bad product id %q: %w", p, err)
	}
	return uint16(vv), uint16(pp), nil
}
