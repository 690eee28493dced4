// Package config layers nerojtag settings from built-in defaults, an
// optional YAML file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/spf13/pflag"
	yml "gopkg.in/yaml.v2"

	"github.com/OpenTraceLab/nerojtag/internal/logging"
	"github.com/OpenTraceLab/nerojtag/pkg/usbdev"
)

// FileName is the configuration file looked up when --config is not given.
const FileName = "nerojtag.yml"

// Config is the effective configuration.
type Config struct {
	Device  string    `koanf:"device" yaml:"device"`
	Timeout string    `koanf:"timeout" yaml:"timeout"`
	Log     LogConfig `koanf:"log" yaml:"log"`
	Sim     SimConfig `koanf:"sim" yaml:"sim"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// SimConfig drives the built-in firmware simulator instead of USB hardware.
type SimConfig struct {
	Enabled bool     `koanf:"enabled" yaml:"enabled"`
	IDs     []string `koanf:"ids" yaml:"ids"`
	Chunk   int      `koanf:"chunk" yaml:"chunk"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Device:  usbdev.FormatID(usbdev.VendorID, usbdev.ProductID),
		Timeout: usbdev.DefaultTimeout.String(),
		Log:     LogConfig{Level: "warn", Format: "text"},
		Sim: SimConfig{
			IDs:   []string{"0x4BA00477", "0x06413041"},
			Chunk: 64,
		},
	}
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"device":     "device",
	"timeout":    "timeout",
	"log-level":  "log.level",
	"log-format": "log.format",
	"sim":        "sim.enabled",
	"sim-ids":    "sim.ids",
	"sim-chunk":  "sim.chunk",
}

// RegisterFlags adds the flags Load understands to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("config", FileName, "configuration file")
	flags.String("device", d.Device, "USB VID:PID of the probe")
	flags.String("timeout", d.Timeout, "USB transfer timeout")
	flags.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", d.Log.Format, "log format (text, json)")
	flags.Bool("sim", false, "use the built-in simulator instead of USB hardware")
	flags.StringSlice("sim-ids", d.Sim.IDs, "IDCODEs of simulated devices, nearest TDO first (0 for BYPASS-only)")
	flags.Int("sim-chunk", d.Sim.Chunk, "simulated bulk endpoint size in bytes")
}

// Load merges defaults, the YAML file at path (a missing file is ignored)
// and the flags set in flags, which may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if flags != nil {
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every field that is parsed later.
func (c *Config) Validate() error {
	if _, _, err := c.DeviceID(); err != nil {
		return fmt.Errorf("config: device: %w", err)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Sim.Chunk < 1 || c.Sim.Chunk > 0xFFFF {
		return fmt.Errorf("config: sim.chunk %d out of range [1, 65535]", c.Sim.Chunk)
	}
	if _, err := c.SimIDCodes(); err != nil {
		return err
	}
	return nil
}

// DeviceID parses the configured VID:PID.
func (c *Config) DeviceID() (vid, pid uint16, err error) {
	return usbdev.ParseID(c.Device)
}

// TimeoutDuration parses the configured transfer timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: timeout must be positive, got %s", d)
	}
	return d, nil
}

// SimIDCodes parses the simulated chain. Zero entries are devices without
// an IDCODE register.
func (c *Config) SimIDCodes() ([]uint32, error) {
	ids := make([]uint32, 0, len(c.Sim.IDs))
	for _, s := range c.Sim.IDs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("config: sim.ids: bad IDCODE %q: %w", s, err)
		}
		ids = append(ids, uint32(v))
	}
	return ids, nil
}

// Write encodes the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(c)
}

// Save writes the configuration to path, refusing to replace an existing
// file unless overwrite is set.
func (c *Config) Save(path string, overwrite bool) error {
	mode := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		mode |= os.O_EXCL
	}
	f, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("config: %w", err)
	}
	return f.Close()
}
