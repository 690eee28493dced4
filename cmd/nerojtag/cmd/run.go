package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/nerojtag/internal/logging"
	"github.com/OpenTraceLab/nerojtag/pkg/script"
)

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a command script",
		Long: `Execute a NeroJTAG command script and print every captured read-back.

Script syntax, one statement per line (or separated by ';'):
  reset                          # five TMS=1 clocks
  goto ShiftDR                   # shortest TMS path, needs a prior reset
  shift 32 ones read last        # shift <bits> [zeros|ones|<hex>] [read] [last]
  fsm 0x1F 5                     # ClockFSM <pattern> <count>
  clocks 1000                    # free-run TCK

Examples:
  nerojtag run idcode.nj
  nerojtag --sim run idcode.nj`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := script.ParseFile(args[0])
			if err != nil {
				return err
			}
			logging.Debug(logging.ComponentScript, "script parsed",
				"path", args[0], "statements", len(prog.Statements))
			return a.execute(cmd, prog)
		},
	}
}
