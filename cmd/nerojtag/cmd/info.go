package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/nerojtag/pkg/usbdev"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List attached NeroJTAG probes",
		Long: `List USB devices matching --device without opening them.

Examples:
  nerojtag list
  nerojtag list --device 1443:0007`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if a.cfg.Sim.Enabled {
				fmt.Fprintf(out, "NeroJTAG simulator (%d device(s), %d byte endpoints)\n",
					len(a.cfg.Sim.IDs), a.cfg.Sim.Chunk)
				return nil
			}
			vid, pid, err := a.cfg.DeviceID()
			if err != nil {
				return err
			}
			probes, err := usbdev.Enumerate(cmd.Context(), vid, pid)
			if err != nil {
				return fmt.Errorf("enumerate USB devices: %w", err)
			}
			if len(probes) == 0 {
				fmt.Fprintf(out, "No probes found matching %s\n", usbdev.FormatID(vid, pid))
				return nil
			}
			for _, p := range probes {
				fmt.Fprintln(out, p.Label())
			}
			return nil
		},
	}
}

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Open the probe and show the negotiated session",
		Args:  cobra.NoArgs,
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
			info, err := ad.Info()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Adapter:    %s\n", info.Name)
			fmt.Fprintf(out, "Device:     %s\n", p.name)
			fmt.Fprintf(out, "Chunk size: %d bytes\n", info.ChunkSize)
			fmt.Fprintf(out, "TCK:        %s\n", clockNote(info.FixedClock))
			fmt.Fprintf(out, "TAP state:  %s\n", ad.State())
			return nil
		},
	}
}

func clockNote(fixed bool) string {
	if fixed {
		return "fixed by firmware"
	}
	return "adjustable"
}
