package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of extractor. Release builds set it with
// -ldflags "-X github.com/mamaar/extractor/internal/cli.Version=...".
var Version = "0.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "extractor version %s\n", Version)
		},
	}
}
