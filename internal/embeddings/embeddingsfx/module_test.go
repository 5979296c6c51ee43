package embeddingsfx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/embeddings"
)

func TestEmbeddingsModule(t *testing.T) {
	var e embeddings.Embedder
	app := fx.New(
		Module,
		fx.Supply(
			&configfx.Config{EmbedProvider: "local", Dimension: 16, QueryCacheSize: 4, QueryCacheTTL: configfx.DefaultQueryCacheTTL},
			zap.NewNop(),
		),
		fx.Populate(&e),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	v, err := e.EmbedQuery(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, v, 16)
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewEmbedder(Params{Config: &configfx.Config{EmbedProvider: "nope"}, Logger: zap.NewNop()})
	assert.ErrorIs(t, err, embeddings.ErrUnknownProvider)
}

func TestOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewEmbedder(Params{Config: &configfx.Config{EmbedProvider: "openai", EmbedModel: configfx.DefaultOpenAIModel}, Logger: zap.NewNop()})
	assert.Error(t, err)
}
