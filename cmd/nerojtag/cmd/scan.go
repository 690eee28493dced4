package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/nerojtag/pkg/idcode"
	"github.com/OpenTraceLab/nerojtag/pkg/idcode/deviceinfo"
)

// ChainDevice is one entry of the scan output.
type ChainDevice struct {
	Position     int    `json:"position"`
	Bypass       bool   `json:"bypass"`
	IDCode       string `json:"idcode,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Name         string `json:"name,omitempty"`
	Family       string `json:"family,omitempty"`
	IRLength     int    `json:"ir_length,omitempty"`
}

func (a *app) newScanCmd() *cobra.Command {
	var (
		maxDevices int
		outputJSON bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read the IDCODE of every device in the chain",
		Long: `Reset the chain, shift ones through the data registers and split the
captured stream into per-device IDCODEs. Devices without an IDCODE register
show up as BYPASS.

Examples:
  nerojtag scan
  nerojtag scan --max 16 --json
  nerojtag --sim --sim-ids 0x4BA00477,0,0x06413041 scan`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProbe(a.cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			ad, err := p.adapter()
			if err != nil {
				return err
			}
			devs, err := ad.ScanIDCodes(maxDevices)
			if err != nil {
				return fmt.Errorf("chain scan failed: %w", err)
			}

			chain := make([]ChainDevice, 0, len(devs))
			for _, d := range devs {
				chain = append(chain, describe(d))
			}
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(chain)
			}
			printChain(cmd.OutOrStdout(), chain)
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxDevices, "max", "m", 8, "maximum number of devices to scan for")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}

func describe(d idcode.Device) ChainDevice {
	if d.Bypass {
		return ChainDevice{Position: d.Position, Bypass: true}
	}
	info := deviceinfo.Lookup(d.ID.Raw)
	cd := ChainDevice{
		Position:     d.Position,
		IDCode:       fmt.Sprintf("0x%08X", d.ID.Raw),
		Manufacturer: d.ID.Manufacturer(),
		IRLength:     info.IRLength,
	}
	if info.Known() {
		cd.Name, cd.Family = info.Name, info.Family
	}
	return cd
}

func printChain(w io.Writer, chain []ChainDevice) {
	fmt.Fprintf(w, "Found %d device(s), position 0 nearest TDO\n\n", len(chain))
	for _, d := range chain {
		if d.Bypass {
			fmt.Fprintf(w, "Device %d: BYPASS (no IDCODE register)\n", d.Position)
			continue
		}
		fmt.Fprintf(w, "Device %d: %s\n", d.Position, d.IDCode)
		fmt.Fprintf(w, "  Manufacturer: %s\n", d.Manufacturer)
		if d.Name != "" {
			fmt.Fprintf(w, "  Part:         %s (%s)\n", d.Name, d.Family)
		}
		if d.IRLength > 0 {
			fmt.Fprintf(w, "  IR Length:    %d bits\n", d.IRLength)
		}
	}
}
