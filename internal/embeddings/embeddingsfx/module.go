package embeddingsfx

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/embeddings"
)

// Params represents dependencies for embeddings components
type Params struct {
	fx.In

	Config *configfx.Config
	Logger *zap.Logger
}

// NewEmbedder creates the configured embedder, wrapped with the query cache
func NewEmbedder(params Params) (embeddings.Embedder, error) {
	cfg := params.Config
	var e embeddings.Embedder
	switch cfg.EmbedProvider {
	case "api":
		e = embeddings.NewApi(cfg.EmbedURL)
	case "openai":
		baseURL := ""
		if cfg.EmbedURL != configfx.DefaultEmbedURL {
			baseURL = cfg.EmbedURL
		}
		oe, err := embeddings.NewOpenAI(cfg.EmbedAPIKey, baseURL, cfg.EmbedModel, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		e = oe
	case "local":
		e = embeddings.NewLocal(cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: %q", embeddings.ErrUnknownProvider, cfg.EmbedProvider)
	}
	params.Logger.Debug("embedder ready",
		zap.String("provider", cfg.EmbedProvider),
		zap.String("model", e.ModelName()),
	)
	return embeddings.WithQueryCache(e, cfg.QueryCacheSize, cfg.QueryCacheTTL), nil
}

// Module provides embeddings components
var Module = fx.Module("embeddings",
	fx.Provide(NewEmbedder),
)
