package cli

import (
	"github.com/spf13/cobra"

	"github.com/mamaar/extractor/pkg/report"
)

func newTableCommand(g *globals) *cobra.Command {
	var step int

	cmd := &cobra.Command{
		Use:   "table [dir] <target>",
		Short: "Print the symbol table and raw opportunities of a unit",
		Long: `table prints, for every statement line of the target, the symbols the
line declares, reads or writes, followed by every raw opportunity mined
from those lines and the merged per-symbol intervals.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, miner, err := setup(cmd, g)
			if err != nil {
				return err
			}
			dir, target := dirAndTarget(args)

			run, table, ops, err := miner.Table(dir, target)
			if err != nil {
				return err
			}
			return report.WriteTable(cmd.OutOrStdout(), run.Unit.String(), table, ops, step)
		},
	}
	cmd.Flags().IntVar(&step, "step", 1, "line step for the merged symbol intervals (0 to skip them)")
	return cmd
}
