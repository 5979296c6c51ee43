package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x5457/loca/internal/models"
)

func snip(path string, line int, name string) models.Snippet {
	return models.Snippet{FilePath: path, LineStart: line, LineEnd: line, Code: name, Kind: models.KindFunction, Name: name}
}

func TestInMemoryVectorStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryVectorStore()

	hits, err := s.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	require.NoError(t, s.Delete(ctx, []string{"missing.py:1"}))

	require.NoError(t, s.Upsert(ctx,
		[]models.Snippet{snip("a.py", 1, "f"), snip("b.py", 2, "g"), snip("c.py", 3, "h")},
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
	))
	hits, err = s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.py:1", hits[0].Snippet.ID())
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "c.py:3", hits[1].Snippet.ID())

	require.NoError(t, s.Upsert(ctx, []models.Snippet{snip("a.py", 1, "f2")}, [][]float32{{0, 1}}))
	assert.Equal(t, []string{"a.py:1", "b.py:2", "c.py:3"}, s.IDs())

	require.NoError(t, s.Delete(ctx, []string{"b.py:2"}))
	assert.Equal(t, []string{"a.py:1", "c.py:3"}, s.IDs())

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.IDs())

	assert.Error(t, s.Upsert(ctx, []models.Snippet{snip("a.py", 1, "f")}, nil))
}
