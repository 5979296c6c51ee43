package storagefx

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/storage"
	"github.com/0x5457/loca/internal/storage/memory"
	"github.com/0x5457/loca/internal/storage/qdrant"
	"github.com/0x5457/loca/internal/storage/sqlite"
	"github.com/0x5457/loca/internal/storage/sqlvec"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *configfx.Config
	Logger    *zap.Logger
}

// NewSymbolStore creates the symbol table. The memory backend keeps it in
// memory as well.
func NewSymbolStore(params Params) (storage.SymbolStore, error) {
	path := ":memory:"
	if params.Config.Backend != "memory" {
		if err := os.MkdirAll(params.Config.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		path = params.Config.SymbolDBPath()
	}
	s, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open symbol store: %w", err)
	}
	closeOnStop(params.Lifecycle, s)
	return s, nil
}

// NewVectorStore creates the configured vector store backend
func NewVectorStore(params Params) (storage.VectorStore, error) {
	cfg := params.Config
	var (
		s   storage.VectorStore
		err error
	)
	switch cfg.Backend {
	case "sqlite":
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		s, err = sqlvec.New(cfg.VectorDBPath())
	case "qdrant":
		s, err = qdrant.New(cfg.QdrantAddr, cfg.Collection)
	case "memory":
		s = memory.NewInMemoryVectorStore()
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	params.Logger.Debug("vector store ready", zap.String("backend", cfg.Backend))
	closeOnStop(params.Lifecycle, s)
	return s, nil
}

func closeOnStop(lc fx.Lifecycle, c interface{ Close() error }) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return c.Close() },
	})
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(
		NewSymbolStore,
		NewVectorStore,
	),
)
