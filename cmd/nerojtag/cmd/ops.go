package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/nerojtag/pkg/script"
)

func (a *app) newShiftCmd() *cobra.Command {
	var read, last bool
	cmd := &cobra.Command{
		Use:   "shift <bits> [zeros|ones|<hex>]",
		Short: "Shift bits through the current TAP state",
		Long: `Shift <bits> bits with the shift engine. The source defaults to zeros; hex
data is a little-endian value, 0x01 is shifted first.

Examples:
  nerojtag shift 32 ones --read --last
  nerojtag shift 8 0xA5 --last`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt := "shift " + strings.Join(args, " ")
			if read {
				stmt += " read"
			}
			if last {
				stmt += " last"
			}
			return a.runStatement(cmd, stmt)
		},
	}
	cmd.Flags().BoolVarP(&read, "read", "r", false, "capture and print TDO")
	cmd.Flags().BoolVarP(&last, "last", "l", false, "raise TMS on the final bit")
	return cmd
}

func (a *app) newFSMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsm <pattern> <count>",
		Short: "Clock a TMS pattern, LSB first",
		Long: `Clock <count> (at most 32) TCK cycles with TMS taken from <pattern>.

Examples:
  nerojtag fsm 0x1F 5     # Test-Logic-Reset
  nerojtag fsm 0x2 4      # Run-Test/Idle to Shift-DR`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatement(cmd, "fsm "+args[0]+" "+args[1])
		},
	}
}

func (a *app) newClocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clocks <n>",
		Short: "Free-run TCK for n cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatement(cmd, "clocks "+args[0])
		},
	}
}

// runStatement executes a single script statement built from the arguments.
func (a *app) runStatement(cmd *cobra.Command, stmt string) error {
	prog, err := script.ParseString("<args>", stmt)
	if err != nil {
		return err
	}
	if len(prog.Statements) != 1 {
		return fmt.Errorf("expected one operation, got %d", len(prog.Statements))
	}
	return a.execute(cmd, prog)
}

func (a *app) execute(cmd *cobra.Command, prog *script.Program) error {
	p, err := openProbe(a.cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	caps, err := script.Run(p.session, prog)
	for _, c := range caps {
		fmt.Fprintf(cmd.OutOrStdout(), "line %d: %s (%d bits)\n", c.Line, c.Hex(), c.Bits)
	}
	return err
}
