package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mamaar/extractor/internal/app"
	"github.com/mamaar/extractor/internal/config"
	"github.com/mamaar/extractor/pkg/report"
)

func newMineCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine [dir] <target>",
		Short: "Rank extract-method candidates for a method, type or function",
		Example: `  extractor mine ./billing Report.Build
  extractor mine ./billing Report --format json --limit 5
  extractor mine Total --diff`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, miner, err := setup(cmd, g)
			if err != nil {
				return err
			}
			dir, target := dirAndTarget(args)

			run, err := miner.Mine(cmd.Context(), dir, target)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), cfg, miner, run)
		},
	}
	addMiningFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func writeReport(out io.Writer, cfg *config.Config, miner *app.Miner, run *app.Run) error {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	r, err := miner.Report(run)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	return report.NewWriter(out, format, cfg.Output.Color && !color.NoColor).Write(r)
}
