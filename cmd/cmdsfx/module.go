package cmdsfx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/indexer"
	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/progress"
	"github.com/0x5457/loca/internal/search"
	"github.com/0x5457/loca/internal/watch"
)

const defaultMCPAddr = ":8080"

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config        *configfx.Config
	searchService *search.Service
	indexer       indexer.Indexer
	mcpServer     *server.MCPServer
	watcher       *watch.Watcher
	logger        *zap.Logger
	out           io.Writer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config        *configfx.Config
	Logger        *zap.Logger
	SearchService *search.Service   `optional:"true"`
	Indexer       indexer.Indexer   `optional:"true"`
	MCPServer     *server.MCPServer `optional:"true"`
	Watcher       *watch.Watcher    `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	return &CommandRunner{
		config:        params.Config,
		searchService: params.SearchService,
		indexer:       params.Indexer,
		mcpServer:     params.MCPServer,
		watcher:       params.Watcher,
		logger:        params.Logger,
		out:           os.Stdout,
	}
}

// indexView renders index progress events as a bar and stage spinners.
type indexView struct {
	out     io.Writer
	bar     *progress.Bar
	spinner *progress.Spinner
}

func (v *indexView) stopSpinner(err error) {
	if v.spinner != nil {
		v.spinner.Stop(err)
		v.spinner = nil
	}
}

func (v *indexView) finishBar() {
	if v.bar != nil {
		v.bar.Finish()
		v.bar = nil
	}
}

func (v *indexView) handle(p models.IndexProgress) {
	switch p.Stage {
	case models.IndexStageParse:
		if v.bar == nil {
			v.bar = progress.NewBar(v.out, p.TotalFiles, "Indexing files")
		}
		item := path.Base(p.CurrentFile)
		if p.Cached {
			item += " (cached)"
		} else {
			item += fmt.Sprintf(" (%d snippets)", p.FileSnippets)
		}
		v.bar.Update(p.ParsedFiles, item)
	case models.IndexStageDelete:
		v.finishBar()
		v.stopSpinner(nil)
		v.spinner = progress.NewSpinner(v.out, fmt.Sprintf("Removing %d old snippets", p.Pending)).Start()
	case models.IndexStageEmbed:
		v.finishBar()
		v.stopSpinner(nil)
		v.spinner = progress.NewSpinner(v.out, fmt.Sprintf("Adding %d new snippets", p.Pending)).Start()
	case models.IndexStageSave:
		v.finishBar()
		v.stopSpinner(nil)
		v.spinner = progress.NewSpinner(v.out, "Saving caches").Start()
	case models.IndexStageDone:
		v.finishBar()
		v.stopSpinner(nil)
		if p.TotalFiles == 0 {
			fmt.Fprintln(v.out, progress.WarningStyle.Render("⚠ No source files found!"))
		}
		if s := p.Stats; s != nil {
			fmt.Fprintln(v.out, progress.SuccessStyle.Render(fmt.Sprintf(
				"✔ Indexing complete! Processed %d files, found %d new/updated snippets, removed %d.",
				s.Files, s.Added, s.Deleted,
			)))
		}
	}
}

// RunIndex synchronises the configured project with the index
func (r *CommandRunner) RunIndex(ctx context.Context) error {
	if r.indexer == nil {
		return fmt.Errorf("indexer not available")
	}
	root := r.config.ProjectRoot
	fmt.Fprintln(r.out, progress.TitleStyle.Render("📂 Starting indexing process..."))
	fmt.Fprintln(r.out, progress.DimStyle.Render("Scanning source files in: "+root))

	view := &indexView{out: r.out}
	progCh, errCh := r.indexer.IndexProjectProgress(ctx, root)
	for progCh != nil || errCh != nil {
		select {
		case p, ok := <-progCh:
			if !ok {
				progCh = nil
				continue
			}
			view.handle(p)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				view.stopSpinner(err)
				fmt.Fprintln(r.out)
				return err
			}
		case <-ctx.Done():
			view.stopSpinner(ctx.Err())
			fmt.Fprintln(r.out)
			return ctx.Err()
		}
	}
	view.stopSpinner(nil)
	return nil
}

// RunClear drops the index and both caches
func (r *CommandRunner) RunClear(ctx context.Context) error {
	if r.indexer == nil {
		return fmt.Errorf("indexer not available")
	}
	fmt.Fprintln(r.out, progress.TitleStyle.Render("🧹 Clearing all caches and database..."))
	sp := progress.NewSpinner(r.out, "Clearing database and caches").Start()
	err := r.indexer.Clear(ctx)
	sp.Stop(err)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, progress.SuccessStyle.Render("✔ All data cleared successfully!"))
	return nil
}

// RunQuery executes semantic search and prints the results
func (r *CommandRunner) RunQuery(ctx context.Context, query string, n int) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	fmt.Fprintln(r.out, progress.TitleStyle.Render("🔍 Searching for: "+query))
	sp := progress.NewSpinner(r.out, "Searching database").Start()
	hits, err := r.searchService.Search(ctx, query, n)
	sp.Stop(err)
	if err != nil {
		return err
	}
	r.printResults(query, hits)
	return nil
}

func (r *CommandRunner) printResults(query string, hits []models.SemanticHit) {
	fmt.Fprintln(r.out, progress.InfoStyle.Render(fmt.Sprintf("✔ Found %d results for: '%s'", len(hits), query)))
	fmt.Fprintln(r.out)
	if len(hits) == 0 {
		fmt.Fprintln(r.out, progress.WarningStyle.Render("No matching code snippets found."))
		return
	}
	for i, h := range hits {
		s := h.Snippet
		fmt.Fprintln(r.out, progress.TitleStyle.Render(fmt.Sprintf("%d. %s", i+1, s.ID()))+
			progress.DimStyle.Render(fmt.Sprintf("  (score %.3f)", h.Score)))
		fmt.Fprintln(r.out, s.Code)
		if s.Name != "" {
			fmt.Fprintln(r.out, progress.AccentStyle.Render("   Name: "+s.Name))
		}
		if s.Kind != "" {
			fmt.Fprintln(r.out, progress.SuccessStyle.Render("   Type: "+string(s.Kind)))
		}
		if s.Docstring != "" {
			fmt.Fprintln(r.out, progress.WarningStyle.Render("   Docstring: "+s.Docstring))
		}
		fmt.Fprintln(r.out)
	}
}

// RunSymbol prints the snippets defining name
func (r *CommandRunner) RunSymbol(ctx context.Context, name string) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	syms, err := r.searchService.FindSymbol(ctx, name)
	if err != nil {
		return err
	}
	if len(syms) == 0 {
		fmt.Fprintln(r.out, progress.WarningStyle.Render("No symbol named "+name))
		return nil
	}
	for _, s := range syms {
		fmt.Fprintf(r.out, "%s %s %s:%d-%d\n", s.Name, progress.DimStyle.Render(string(s.Kind)), s.FilePath, s.LineStart, s.LineEnd)
	}
	return nil
}

// RunWatch indexes once, then again whenever project files change, until
// ctx is done.
func (r *CommandRunner) RunWatch(ctx context.Context) error {
	if r.watcher == nil {
		return fmt.Errorf("watcher not available")
	}
	if err := r.RunIndex(ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.out, progress.DimStyle.Render("Watching "+r.config.ProjectRoot+" for changes (Ctrl+C to stop)"))
	return r.watcher.Run(ctx, r.RunIndex)
}

// RunMCPServer executes the MCP server
func (r *CommandRunner) RunMCPServer(transport, address string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}
	addr := address
	if addr == "" {
		addr = defaultMCPAddr
	}
	r.logger.Info("serving mcp", zap.String("transport", transport), zap.String("addr", addr))

	switch transport {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http":
		httpSrv := server.NewStreamableHTTPServer(r.mcpServer)
		return httpSrv.Start(addr)
	case "sse":
		// SSE server exposes two endpoints under "/mcp"
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(addr)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
