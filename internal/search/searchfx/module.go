package searchfx

import (
	"go.uber.org/fx"

	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/embeddings"
	"github.com/0x5457/loca/internal/search"
	"github.com/0x5457/loca/internal/storage"
)

// Params represents dependencies for search service
type Params struct {
	fx.In

	Config   *configfx.Config
	Embedder embeddings.Embedder
	VecStore storage.VectorStore
	SymStore storage.SymbolStore `optional:"true"`
}

// NewSearchService creates a new search service instance
func NewSearchService(params Params) *search.Service {
	return &search.Service{
		Embedder: params.Embedder,
		Vector:   params.VecStore,
		Symbols:  params.SymStore, // Can be nil
		Options: search.Options{
			BatchSize: params.Config.BatchSize,
			Workers:   params.Config.Workers,
		},
	}
}

// Module provides search components
var Module = fx.Module("search",
	fx.Provide(NewSearchService),
)
