package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x5457/loca/cmd/cmdsfx"
	"github.com/0x5457/loca/internal/search"
)

func NewQueryCommand(g *GlobalFlags) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search your codebase using a natural language query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("-n must be positive, got %d", n)
			}
			return withRunner(cmd.Context(), g, func(r *cmdsfx.CommandRunner) error {
				return r.RunQuery(cmd.Context(), args[0], n)
			})
		},
	}
	cmd.Flags().IntVarP(&n, "n-results", "n", search.DefaultTopK, "number of code results to display")
	return cmd
}

func NewSymbolCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "symbol [name]",
		Short: "Find functions, classes and globals by exact name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), g, func(r *cmdsfx.CommandRunner) error {
				return r.RunSymbol(cmd.Context(), args[0])
			})
		},
	}
}
