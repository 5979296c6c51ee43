package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/indexer"
	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/search"
)

const (
	ServerName    = "loca/mcp"
	ServerVersion = "0.1.0"
)

// Searcher answers semantic and exact-name queries.
type Searcher interface {
	Search(ctx context.Context, text string, n int) ([]models.SemanticHit, error)
	FindSymbol(ctx context.Context, name string) ([]models.Snippet, error)
}

// ServerOptions contains configuration for the MCP server
type ServerOptions struct {
	Search  Searcher
	Indexer indexer.Indexer
	// Root is the project synchronised by the index_project tool.
	Root   string
	Logger *zap.Logger
}

// Server holds the collaborators behind the MCP tools.
type Server struct {
	opts ServerOptions
}

// New returns an MCP server exposing search and index tools. Nil
// collaborators make the matching tools report an error.
func New(opts ServerOptions) *server.MCPServer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	srv := &Server{opts: opts}
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)
	s.AddTool(newSemanticSearchTool(), srv.handleSemanticSearch)
	s.AddTool(newSymbolSearchTool(), srv.handleSymbolSearch)
	s.AddTool(newIndexProjectTool(), srv.handleIndexProject)
	return s
}

// Hit is the structured result of a search tool.
type Hit struct {
	ID        string  `json:"id"`
	FilePath  string  `json:"file_path"`
	LineStart int     `json:"line_start"`
	LineEnd   int     `json:"line_end"`
	Kind      string  `json:"type"`
	Name      string  `json:"name,omitempty"`
	Docstring string  `json:"docstring,omitempty"`
	Code      string  `json:"code"`
	Score     float32 `json:"score,omitempty"`
}

func toHit(s models.Snippet, score float32) Hit {
	return Hit{
		ID:        s.ID(),
		FilePath:  s.FilePath,
		LineStart: s.LineStart,
		LineEnd:   s.LineEnd,
		Kind:      string(s.Kind),
		Name:      s.Name,
		Docstring: s.Docstring,
		Code:      s.Code,
		Score:     score,
	}
}

// Tool definitions
func newSemanticSearchTool() mcp.Tool {
	return mcp.NewTool(
		"semantic_search",
		mcp.WithDescription("Semantic code search by natural language query"),
		mcp.WithString("query", mcp.Description("Natural language query"), mcp.Required()),
		mcp.WithNumber("top_k", mcp.Description("Number of results"), mcp.DefaultNumber(search.DefaultTopK)),
	)
}

func newSymbolSearchTool() mcp.Tool {
	return mcp.NewTool(
		"symbol_search",
		mcp.WithDescription("Exact symbol name search over indexed functions, classes and globals"),
		mcp.WithString("name", mcp.Description("Symbol name"), mcp.Required()),
	)
}

func newIndexProjectTool() mcp.Tool {
	return mcp.NewTool(
		"index_project",
		mcp.WithDescription("Synchronise the index with the current state of the project"),
	)
}

// Handlers
func (srv *Server) handleSemanticSearch(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.opts.Search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}
	hits, err := srv.opts.Search.Search(ctx, query, req.GetInt("top_k", search.DefaultTopK))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := make([]Hit, len(hits))
	for i, h := range hits {
		res[i] = toHit(h.Snippet, h.Score)
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"results": res}), nil
}

func (srv *Server) handleSymbolSearch(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.opts.Search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}
	syms, err := srv.opts.Search.FindSymbol(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := make([]Hit, len(syms))
	for i, s := range syms {
		res[i] = toHit(s, 0)
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"results": res}), nil
}

func (srv *Server) handleIndexProject(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if srv.opts.Indexer == nil || srv.opts.Root == "" {
		return mcp.NewToolResultError("indexer not initialized"), nil
	}
	stats, err := srv.opts.Indexer.IndexProject(ctx, srv.opts.Root)
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return mcp.NewToolResultError("an index run is already in progress, try again later"), nil
	}
	if err != nil {
		srv.opts.Logger.Error("index project", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("index project failed: %v", err)), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{
		"files":    stats.Files,
		"cached":   stats.Cached,
		"parsed":   stats.Parsed,
		"added":    stats.Added,
		"deleted":  stats.Deleted,
		"rescued":  stats.Rescued,
		"duration": stats.Duration.String(),
	}), nil
}
