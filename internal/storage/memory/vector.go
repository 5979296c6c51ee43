package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/0x5457/loca/internal/models"
)

type item struct {
	snippet models.Snippet
	vec     []float32
}

// InMemoryVectorStore is a process-local VectorStore scored by cosine
// similarity.
type InMemoryVectorStore struct {
	mu   sync.RWMutex
	data map[string]item // snippet id -> item
}

func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{data: make(map[string]item)}
}

func (s *InMemoryVectorStore) Upsert(_ context.Context, snippets []models.Snippet, embeddings [][]float32) error {
	if len(snippets) != len(embeddings) {
		return fmt.Errorf("snippets and embeddings length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sn := range snippets {
		s.data[sn.ID()] = item{snippet: sn, vec: embeddings[i]}
	}
	return nil
}

func (s *InMemoryVectorStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.data, id)
	}
	return nil
}

func (s *InMemoryVectorStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]item)
	return nil
}

func (s *InMemoryVectorStore) Close() error { return nil }

// IDs returns the stored snippet ids in sorted order.
func (s *InMemoryVectorStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *InMemoryVectorStore) Query(_ context.Context, embedding []float32, topK int) ([]models.SemanticHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make([]models.SemanticHit, 0, len(s.data))
	for _, it := range s.data {
		hits = append(hits, models.SemanticHit{Snippet: it.snippet, Score: cosine(it.vec, embedding)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Snippet.ID() < hits[j].Snippet.ID()
	})
	if topK > 0 && topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func cosine(a, b []float32) float32 {
	var dot float64
	var na float64
	var nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i] * b[i])
		na += float64(a[i] * a[i])
		nb += float64(b[i] * b[i])
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0
	}
	return float32(dot / den)
}
