package indexerfx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/cache"
	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/discovery"
	"github.com/0x5457/loca/internal/indexer"
	"github.com/0x5457/loca/internal/indexer/pipeline"
	"github.com/0x5457/loca/internal/parser"
	"github.com/0x5457/loca/internal/search"
	"github.com/0x5457/loca/internal/watch"
)

// NewCacheStore opens the project's dual cache store. Caches of an
// in-memory vector store stay in memory too.
func NewCacheStore(cfg *configfx.Config, logger *zap.Logger) *cache.Store {
	if cfg.InMemory() {
		return cache.NewMemoryStore(logger.Named("cache"))
	}
	return cache.NewStore(cfg.CacheDir, logger.Named("cache"))
}

// NewScanner creates the file discovery scanner for supported extensions
func NewScanner(cfg *configfx.Config, reg *parser.Registry) *discovery.Scanner {
	s := discovery.New(reg.Supports)
	s.Exclude = cfg.Exclude
	return s
}

// IndexerParams represents dependencies for indexer components
type IndexerParams struct {
	fx.In

	Parser  parser.Parser
	Scanner *discovery.Scanner
	Caches  *cache.Store
	Search  *search.Service
	Logger  *zap.Logger
}

// NewIndexer creates a new indexer instance
func NewIndexer(params IndexerParams) indexer.Indexer {
	return pipeline.New(
		params.Parser,
		params.Scanner,
		params.Caches,
		params.Search,
		params.Logger.Named("indexer"),
	)
}

// NewWatcher creates the project watcher
func NewWatcher(cfg *configfx.Config, scanner *discovery.Scanner, logger *zap.Logger) *watch.Watcher {
	return &watch.Watcher{
		Root:     cfg.ProjectRoot,
		SkipDir:  scanner.SkipDir,
		Match:    scanner.Match,
		Debounce: watch.DefaultDebounce,
		Logger:   logger.Named("watch"),
	}
}

// Module provides indexer components
var Module = fx.Module("indexer",
	fx.Provide(
		NewCacheStore,
		NewScanner,
		NewIndexer,
		NewWatcher,
	),
)
