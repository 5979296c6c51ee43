package commands

import (
	"github.com/spf13/cobra"

	"github.com/0x5457/loca/cmd/cmdsfx"
)

// NewMCPServeCommand starts an MCP server exposing the search and index tools.
func NewMCPServeCommand(g *GlobalFlags) *cobra.Command {
	var (
		transport string
		address   string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long:  "Run MCP server, provide semantic_search, symbol_search and index_project tools.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), g, func(r *cmdsfx.CommandRunner) error {
				return r.RunMCPServer(transport, address)
			})
		},
	}
	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address (http modes), e.g. :8080")
	return cmd
}
