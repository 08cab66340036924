package cli

import (
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/mamaar/extractor/internal/mcp"
)

func newMCPCommand(g *globals) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server on stdio",
		Long: `Start a Model Context Protocol server on stdio. It exposes:
  - load_workspace: set the default package directory
  - find_extract_opportunities: ranked extract-method candidates for a unit
  - symbol_table: the per-line symbol table and raw opportunities of a unit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, miner, err := setup(cmd, g)
			if err != nil {
				return err
			}
			state, err := mcp.NewMCPServer(miner, logger)
			if err != nil {
				return err
			}
			defer state.Close()

			if workspace != "" {
				if err := state.LoadWorkspace(workspace); err != nil {
					return err
				}
			}

			server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "extractor", Version: Version}, nil)
			mcp.RegisterAllTools(server, state)
			logger.Info("mcp server starting", "workspace", workspace)
			return server.Run(cmd.Context(), &mcpsdk.StdioTransport{})
		},
	}
	addMiningFlags(cmd)
	cmd.Flags().StringVar(&workspace, "workspace", "", "package directory to load at startup")
	return cmd
}
