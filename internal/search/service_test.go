package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x5457/loca/internal/embeddings"
	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/storage/memory"
)

type countingEmbedder struct {
	embeddings.Embedder
	calls atomic.Int32
	fail  bool
}

func (c *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("embedder down")
	}
	return c.Embedder.EmbedTexts(ctx, texts)
}

func snippets(n int) []models.Snippet {
	out := make([]models.Snippet, n)
	for i := range out {
		out[i] = models.Snippet{
			FilePath: "a.py", LineStart: i + 1, LineEnd: i + 1,
			Code: "x = 1", Kind: models.KindGlobalVariable, Name: "x",
		}
	}
	return out
}

func TestAddBatchesAndSearch(t *testing.T) {
	ctx := context.Background()
	emb := &countingEmbedder{Embedder: embeddings.NewLocal(32)}
	vec := memory.NewInMemoryVectorStore()
	svc := &Service{Embedder: emb, Vector: vec, Options: Options{BatchSize: 3, Workers: 2}}

	require.NoError(t, svc.Add(ctx, snippets(7)))
	assert.Equal(t, int32(3), emb.calls.Load())
	assert.Len(t, vec.IDs(), 7)

	hits, err := svc.Search(ctx, "x = 1", 0)
	require.NoError(t, err)
	assert.Len(t, hits, DefaultTopK)

	require.NoError(t, svc.Delete(ctx, []string{"a.py:1", "a.py:99"}))
	assert.Len(t, vec.IDs(), 6)

	require.NoError(t, svc.Clear(ctx))
	assert.Empty(t, vec.IDs())

	hits, err = svc.Search(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAddEmbedderFailureWritesNothing(t *testing.T) {
	emb := &countingEmbedder{Embedder: embeddings.NewLocal(8), fail: true}
	vec := memory.NewInMemoryVectorStore()
	svc := &Service{Embedder: emb, Vector: vec}

	err := svc.Add(context.Background(), snippets(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder down")
	assert.Empty(t, vec.IDs())
}

func TestFindSymbolWithoutStore(t *testing.T) {
	svc := &Service{Embedder: embeddings.NewLocal(8), Vector: memory.NewInMemoryVectorStore()}
	got, err := svc.FindSymbol(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, got)
}
