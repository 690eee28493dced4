package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs a fresh command tree and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.nj")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestSimE2E drives every command against the simulator
func TestSimE2E(t *testing.T) {
	idScript := writeScript(t, `
# read both IDCODEs
reset
goto ShiftDR
shift 64 ones read last
goto RunTestIdle
`)
	badScript := writeScript(t, "shift 64 ones read\ngoto ShiftDR\n")

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "scan default chain",
			args: []string{"scan", "--sim"},
			wantContain: []string{
				"Found 2 device(s)",
				"Device 0: 0x4BA00477",
				"ARM Ltd",
				"JTAG-DP (CoreSight)",
				"Device 1: 0x06413041",
				"STMicroelectronics",
				"STM32F40x/41x",
				"IR Length:    5 bits",
			},
		},
		{
			name: "scan with bypass device",
			args: []string{"scan", "--sim", "--sim-ids=0x4BA00477,0"},
			wantContain: []string{
				"Found 2 device(s)",
				"Device 1: BYPASS",
			},
		},
		{
			name: "scan json",
			args: []string{"scan", "--sim", "--json", "--sim-ids=0x0362D093"},
			wantContain: []string{
				`"idcode": "0x0362D093"`,
				`"name": "XC7A35T"`,
				`"ir_length": 6`,
			},
		},
		{
			name:    "scan rejects bad max",
			args:    []string{"scan", "--sim", "--max=0"},
			wantErr: true,
		},
		{
			name:        "info",
			args:        []string{"info", "--sim", "--sim-chunk=32"},
			wantContain: []string{"NeroJTAG", "simulator", "Chunk size: 32 bytes", "TAP state:  TestLogicReset"},
		},
		{
			name:        "list simulator",
			args:        []string{"list", "--sim"},
			wantContain: []string{"NeroJTAG simulator (2 device(s), 64 byte endpoints)"},
		},
		{
			name:        "raw shift outside shift state",
			args:        []string{"shift", "32", "ones", "--read", "--last", "--sim"},
			wantContain: []string{"line 1: 0x00000000 (32 bits)"},
		},
		{
			name:    "raw shift rejects wide data",
			args:    []string{"shift", "4", "0x1F", "--sim"},
			wantErr: true,
		},
		{
			name:    "raw shift rejects extra statements",
			args:    []string{"shift", "8", "ones; clocks 4", "--sim"},
			wantErr: true,
		},
		{
			name: "fsm",
			args: []string{"fsm", "0x1F", "5", "--sim"},
		},
		{
			name:    "fsm count too large",
			args:    []string{"fsm", "0x1", "33", "--sim"},
			wantErr: true,
		},
		{
			name: "clocks",
			args: []string{"clocks", "1000", "--sim"},
		},
		{
			name:        "run script",
			args:        []string{"run", idScript, "--sim"},
			wantContain: []string{"line 5: 0x064130414ba00477 (64 bits)"},
		},
		{
			name:    "run stops at failing statement",
			args:    []string{"run", badScript, "--sim"},
			wantErr: true,
		},
		{
			name:    "run missing script",
			args:    []string{"run", "/nonexistent/script.nj", "--sim"},
			wantErr: true,
		},
		{
			name:    "invalid timeout",
			args:    []string{"scan", "--sim", "--timeout=0s"},
			wantErr: true,
		},
		{
			name:    "unknown log format",
			args:    []string{"scan", "--sim", "--log-format=xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

// TestConfigE2E tests config show and config init
func TestConfigE2E(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nerojtag.yml")

	out, err := execute(t, "config", "show", "--config", path, "--device=2e8a:000c")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"2e8a:000c", "timeout: 5s", "chunk: 64"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q\nGot:\n%s", want, out)
		}
	}

	if _, err := execute(t, "config", "init", "--config", path, "--sim-chunk=16"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := execute(t, "config", "init", "--config", path); err == nil {
		t.Fatal("config init replaced an existing file without --force")
	}

	// The written file is picked up by later commands.
	out, err = execute(t, "info", "--sim", "--config", path)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "Chunk size: 16 bytes") {
		t.Errorf("info did not use the saved chunk size\nGot:\n%s", out)
	}
}
