package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/0x5457/loca/cmd/cmdsfx"
	"github.com/0x5457/loca/internal/app/appfx"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	Home          string
	LogLevel      string
	EmbedProvider string
	EmbedURL      string
	Backend       string
}

// Register adds the persistent flags to root.
func (g *GlobalFlags) Register(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVar(&g.Home, "home", "", "loca data directory (default $LOCA_HOME or the user cache dir)")
	f.StringVar(&g.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&g.EmbedProvider, "embed-provider", "", "embedding provider (local, api, openai)")
	f.StringVar(&g.EmbedURL, "embed-url", "", "embedding API address")
	f.StringVar(&g.Backend, "backend", "", "vector store backend (sqlite, qdrant, memory)")
}

// withRunner builds the application for the current directory, runs fn
// with the command runner and shuts the application down.
func withRunner(ctx context.Context, g *GlobalFlags, fn func(*cmdsfx.CommandRunner) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	var runner *cmdsfx.CommandRunner
	app := appfx.NewApp(appfx.Options{
		Home:          g.Home,
		Cwd:           cwd,
		LogLevel:      g.LogLevel,
		EmbedProvider: g.EmbedProvider,
		EmbedURL:      g.EmbedURL,
		Backend:       g.Backend,
	}, &runner)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	runErr := fn(runner)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}
