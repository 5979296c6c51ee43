package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0x5457/loca/internal/config"
	"github.com/0x5457/loca/internal/progress"
)

func NewSetRootCommand(g *GlobalFlags) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "set-root",
		Short: "Set the root directory of your project for all loca operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := g.Home
			if home == "" {
				d, err := config.DefaultDir()
				if err != nil {
					return err
				}
				home = d
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, progress.TitleStyle.Render("📂 Setting project root..."))
			abs, err := config.SetProjectRoot(home, path)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, progress.SuccessStyle.Render("✔ Project root set to: "+abs))
			return nil
		},
	}
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	cmd.Flags().StringVarP(&path, "path", "p", cwd, "path to the project root directory")
	return cmd
}
