package mcpfx

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/indexer"
	appmcp "github.com/0x5457/loca/internal/mcp"
	"github.com/0x5457/loca/internal/search"
)

// Params represents dependencies for MCP server
type Params struct {
	fx.In

	SearchService *search.Service
	Indexer       indexer.Indexer
	Config        *configfx.Config
	Logger        *zap.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(params Params) *server.MCPServer {
	return appmcp.New(appmcp.ServerOptions{
		Search:  params.SearchService,
		Indexer: params.Indexer,
		Root:    params.Config.ProjectRoot,
		Logger:  params.Logger.Named("mcp"),
	})
}

// Module provides MCP server components
var Module = fx.Module("mcp",
	fx.Provide(NewMCPServer),
)
