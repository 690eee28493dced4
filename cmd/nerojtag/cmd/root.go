package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/nerojtag/internal/config"
	"github.com/OpenTraceLab/nerojtag/internal/logging"
)

// app carries the configuration loaded before every command runs.
type app struct {
	cfg *config.Config
}

// NewRootCmd builds the nerojtag command tree. Each call returns a fresh tree
// with its own flag state.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nerojtag",
		Short: "NeroJTAG USB JTAG probe driver",
		Long: `Drive a JTAG chain through a NeroJTAG USB probe.

Settings come from built-in defaults, then nerojtag.yml (or --config), then
flags. --sim replaces the probe with a simulated chain.

Examples:
  nerojtag list                                   # List attached probes
  nerojtag scan                                   # Read the IDCODE of every device
  nerojtag --sim --sim-ids 0x4BA00477 scan        # Same, against the simulator
  nerojtag shift 32 ones --read --last            # Raw shift, print TDO
  nerojtag run board.nj                           # Execute a command script`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		a.newListCmd(),
		a.newInfoCmd(),
		a.newScanCmd(),
		a.newShiftCmd(),
		a.newFSMCmd(),
		a.newClocksCmd(),
		a.newRunCmd(),
		a.newConfigCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	if err := logging.Configure(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	a.cfg = cfg
	logging.Debug(logging.ComponentCLI, "configuration loaded",
		"path", path, "device", cfg.Device, "sim", cfg.Sim.Enabled)
	return nil
}
