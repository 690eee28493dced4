package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/nerojtag/internal/config"
	"github.com/OpenTraceLab/nerojtag/internal/logging"
	"github.com/OpenTraceLab/nerojtag/pkg/idcode/deviceinfo"
	"github.com/OpenTraceLab/nerojtag/pkg/jtag"
	"github.com/OpenTraceLab/nerojtag/pkg/nero"
	"github.com/OpenTraceLab/nerojtag/pkg/nerosim"
	"github.com/OpenTraceLab/nerojtag/pkg/usbdev"
)

// defaultSimIRLength is used for simulated devices missing from the database.
const defaultSimIRLength = 4

// probe is an open transport with a JTAG session on it.
type probe struct {
	name     string
	session  *nero.Session
	closeDev func() error
}

// openProbe opens the configured USB device, or the simulator when enabled,
// and negotiates a session.
func openProbe(cfg *config.Config) (*probe, error) {
	var (
		dev      nero.Transport
		name     string
		closeDev = func() error { return nil }
	)
	if cfg.Sim.Enabled {
		sim, err := newSim(cfg)
		if err != nil {
			return nil, err
		}
		dev, name = sim, "simulator"
	} else {
		vid, pid, err := cfg.DeviceID()
		if err != nil {
			return nil, err
		}
		timeout, err := cfg.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		d, err := usbdev.Open(vid, pid, usbdev.WithTimeout(timeout))
		if err != nil {
			return nil, err
		}
		dev, name, closeDev = d, d.ID(), d.Close
	}

	s, err := nero.Open(dev)
	if err != nil {
		closeDev()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logging.Info(logging.ComponentSession, "session open", "device", name, "chunk", s.ChunkSize())
	return &probe{name: name, session: s, closeDev: closeDev}, nil
}

// adapter wraps the session in a NeroAdapter, which resets the TAP.
func (p *probe) adapter() (*jtag.NeroAdapter, error) {
	return jtag.NewNeroAdapter(p.session)
}

// Close leaves JTAG mode and releases the transport.
func (p *probe) Close() error {
	err := p.session.Close()
	if cerr := p.closeDev(); err == nil {
		err = cerr
	}
	if err != nil {
		logging.Warn(logging.ComponentSession, "close failed", "device", p.name, "err", err)
	}
	return err
}

// newSim builds a simulated chain from the configured IDCODEs. The IR length
// of each device comes from the device database.
func newSim(cfg *config.Config) (*nerosim.Sim, error) {
	ids, err := cfg.SimIDCodes()
	if err != nil {
		return nil, err
	}
	devs := make([]nerosim.Device, 0, len(ids))
	for _, id := range ids {
		ir := defaultSimIRLength
		if id != 0 {
			if info := deviceinfo.Lookup(id); info.IRLength > 0 {
				ir = info.IRLength
			}
		}
		devs = append(devs, nerosim.Device{IDCode: id, IRLength: ir})
	}
	sim := nerosim.New(devs...)
	sim.OutSize = uint16(cfg.Sim.Chunk)
	sim.InSize = uint16(cfg.Sim.Chunk)
	return sim, nil
}
