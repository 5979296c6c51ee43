package embeddings

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WithQueryCache memoises EmbedQuery results in an expiring LRU. Document
// embeddings are not cached. A non-positive size or ttl returns e unchanged.
func WithQueryCache(e Embedder, size int, ttl time.Duration) Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &queryCache{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type queryCache struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

func (q *queryCache) ModelName() string { return q.next.ModelName() }

func (q *queryCache) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return q.next.EmbedTexts(ctx, texts)
}

func (q *queryCache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := q.next.ModelName() + "\x00" + text
	if cached, ok := q.cache.Get(key); ok {
		return cloneEmbedding(cached), nil
	}
	res, err := q.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	q.cache.Add(key, cloneEmbedding(res))
	return res, nil
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
