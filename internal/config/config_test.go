package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	yml "gopkg.in/yaml.v2"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return fs
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yml"), newFlags(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if !reflect.DeepEqual(*c, want) {
		t.Fatalf("Load() = %+v, want %+v", *c, want)
	}
	vid, pid, _ := c.DeviceID()
	if vid != 0x1443 || pid != 0x0007 {
		t.Fatalf("DeviceID = %04X:%04X", vid, pid)
	}
	if d, _ := c.TimeoutDuration(); d != 5*time.Second {
		t.Fatalf("TimeoutDuration = %v", d)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
device: "2e8a:000c"
timeout: 250ms
log:
  level: debug
sim:
  ids: ["0x0362D093", "0"]
  chunk: 512
`)
	c, err := Load(path, newFlags(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Device != "2e8a:000c" || c.Timeout != "250ms" || c.Log.Level != "debug" || c.Sim.Chunk != 512 {
		t.Fatalf("Load() = %+v", *c)
	}
	if c.Log.Format != "text" {
		t.Fatalf("unset key lost its default: format=%q", c.Log.Format)
	}
	ids, err := c.SimIDCodes()
	if err != nil || !reflect.DeepEqual(ids, []uint32{0x0362D093, 0}) {
		t.Fatalf("SimIDCodes = %v, %v", ids, err)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "timeout: 1s\nlog:\n  level: debug\n")
	c, err := Load(path, newFlags(t, "--timeout=3s", "--sim", "--sim-ids=0x1,0x3", "--log-format=json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Timeout != "3s" {
		t.Errorf("timeout = %q, want flag value", c.Timeout)
	}
	if c.Log.Level != "debug" {
		t.Errorf("unchanged flag overrode file: level=%q", c.Log.Level)
	}
	if !c.Sim.Enabled || c.Log.Format != "json" {
		t.Errorf("flags not applied: %+v", *c)
	}
	if !reflect.DeepEqual(c.Sim.IDs, []string{"0x1", "0x3"}) {
		t.Errorf("sim ids = %v", c.Sim.IDs)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"device", "device: nope", "device"},
		{"timeout", "timeout: soon", "timeout"},
		{"negative timeout", "timeout: -1s", "positive"},
		{"level", "log:\n  level: loud", "level"},
		{"chunk", "sim:\n  chunk: 0", "sim.chunk"},
		{"ids", "sim:\n  ids: [xyz]", "sim.ids"},
		{"yaml", "device: [", "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	c := Default()
	c.Sim.Enabled = true
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var back Config
	if err := yml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if !reflect.DeepEqual(back, c) {
		t.Fatalf("round trip = %+v, want %+v", back, c)
	}
}

func TestSaveRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	c := Default()
	if err := c.Save(path, false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Save(path, false); err == nil {
		t.Fatal("second Save replaced the file")
	}
	c.Timeout = "9s"
	if err := c.Save(path, true); err != nil {
		t.Fatalf("Save with overwrite: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil || loaded.Timeout != "9s" {
		t.Fatalf("Load after Save = %+v, %v", loaded, err)
	}
}
