package appfx

import (
	"go.uber.org/fx"

	"github.com/0x5457/loca/cmd/cmdsfx"
	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/embeddings/embeddingsfx"
	"github.com/0x5457/loca/internal/indexer/indexerfx"
	"github.com/0x5457/loca/internal/logging/loggingfx"
	"github.com/0x5457/loca/internal/mcp/mcpfx"
	"github.com/0x5457/loca/internal/parser/parserfx"
	"github.com/0x5457/loca/internal/search/searchfx"
	"github.com/0x5457/loca/internal/storage/storagefx"
)

// Module combines all application modules
var Module = fx.Options(
	configfx.Module,
	loggingfx.Module,
	parserfx.Module,
	embeddingsfx.Module,
	storagefx.Module,
	searchfx.Module,
	indexerfx.Module,
	mcpfx.Module,
	cmdsfx.Module,
)

// Options are the command-line values supplied to the config module.
type Options struct {
	Home          string
	Cwd           string
	LogLevel      string
	EmbedProvider string
	EmbedURL      string
	Backend       string
}

// NewApp creates an Fx app with the given configuration values that
// populates targets, e.g. a *cmdsfx.CommandRunner.
func NewApp(opts Options, targets ...any) *fx.App {
	return fx.New(
		Module,
		fx.Supply(
			fx.Annotate(opts.Home, fx.ResultTags(`name:"home"`)),
			fx.Annotate(opts.Cwd, fx.ResultTags(`name:"cwd"`)),
			fx.Annotate(opts.LogLevel, fx.ResultTags(`name:"logLevel"`)),
			fx.Annotate(opts.EmbedProvider, fx.ResultTags(`name:"embedProvider"`)),
			fx.Annotate(opts.EmbedURL, fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate(opts.Backend, fx.ResultTags(`name:"backend"`)),
		),
		fx.Populate(targets...),
	)
}
