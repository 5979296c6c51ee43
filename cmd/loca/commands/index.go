package commands

import (
	"github.com/spf13/cobra"

	"github.com/0x5457/loca/cmd/cmdsfx"
)

func NewIndexCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Index your project's source files for semantic code search",
		Long: "Scan and index all supported source files in your project. Unchanged files are " +
			"skipped; snippets of deleted or changed code are removed from the index.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), g, func(r *cmdsfx.CommandRunner) error {
				return r.RunIndex(cmd.Context())
			})
		},
	}
}

func NewClearCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all loca caches and remove all indexed code from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), g, func(r *cmdsfx.CommandRunner) error {
				return r.RunClear(cmd.Context())
			})
		},
	}
}

func NewWatchCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Index the project, then re-index whenever its files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), g, func(r *cmdsfx.CommandRunner) error {
				return r.RunWatch(cmd.Context())
			})
		},
	}
}
