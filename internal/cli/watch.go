package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mamaar/extractor/internal/config"
	"github.com/mamaar/extractor/pkg/watch"
)

func newWatchCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir] <target>",
		Short: "Mine a unit again every time its package changes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, miner, err := setup(cmd, g)
			if err != nil {
				return err
			}
			dir, target := dirAndTarget(args)
			dir, err = filepath.Abs(dir)
			if err != nil {
				return err
			}
			filter, err := miner.Filter()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			run := func(ctx context.Context, changes []watch.ChangeEvent) error {
				for _, c := range changes {
					fmt.Fprintf(out, "changed: %s\n", filepath.Base(c.Path))
				}
				r, err := miner.Mine(ctx, dir, target)
				if err != nil {
					return err
				}
				return writeReport(out, cfg, miner, r)
			}

			logger.Info("watching package", "dir", dir, "target", target, "debounce", cfg.Watch.Debounce)
			return watch.NewSession(dir, cfg.Watch.Debounce, filter, run, logger).Run(cmd.Context())
		},
	}
	addMiningFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().Duration("debounce", config.Default().Watch.Debounce, "wait this long after the last change before mining")
	return cmd
}
