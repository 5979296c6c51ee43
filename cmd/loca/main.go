package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0x5457/loca/cmd/loca/commands"
	"github.com/0x5457/loca/internal/progress"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	g := &commands.GlobalFlags{}
	root := &cobra.Command{
		Use: "loca",
		Short: "Local, privacy-first semantic code search. Find relevant functions, classes and " +
			"globals in your codebase using natural language queries.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.Register(root)
	root.AddCommand(
		commands.NewSetRootCommand(g),
		commands.NewIndexCommand(g),
		commands.NewClearCommand(g),
		commands.NewQueryCommand(g),
		commands.NewSymbolCommand(g),
		commands.NewWatchCommand(g),
		commands.NewMCPServeCommand(g),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, progress.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
