package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/0x5457/loca/internal/embeddings"
	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/storage"
)

const DefaultTopK = 5

type Options struct {
	BatchSize int
	Workers   int
}

// Service is the vector store adapter: it embeds snippets and keeps the
// vector store and the optional symbol table in step by snippet id.
type Service struct {
	Embedder embeddings.Embedder
	Vector   storage.VectorStore
	Symbols  storage.SymbolStore
	Options  Options
}

func (s *Service) batchSize() int {
	if s.Options.BatchSize > 0 {
		return s.Options.BatchSize
	}
	return 64
}

func (s *Service) workers() int {
	if s.Options.Workers > 0 {
		return s.Options.Workers
	}
	return 4
}

// Add embeds snippets in batches, concurrently, then writes them to the
// store in one call.
func (s *Service) Add(ctx context.Context, snippets []models.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	vecs := make([][]float32, len(snippets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	size := s.batchSize()
	for start := 0; start < len(snippets); start += size {
		end := min(start+size, len(snippets))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, sn := range snippets[start:end] {
				texts = append(texts, sn.EmbeddingText())
			}
			out, err := s.Embedder.EmbedTexts(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed snippets: %w", err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("embed snippets: got %d vectors for %d texts", len(out), len(texts))
			}
			copy(vecs[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := s.Vector.Upsert(ctx, snippets, vecs); err != nil {
		return fmt.Errorf("store snippets: %w", err)
	}
	if s.Symbols != nil {
		if err := s.Symbols.UpsertSymbols(ctx, snippets); err != nil {
			return fmt.Errorf("store symbols: %w", err)
		}
	}
	return nil
}

// Delete removes ids from the store; unknown ids are ignored.
func (s *Service) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.Vector.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete snippets: %w", err)
	}
	if s.Symbols != nil {
		if err := s.Symbols.DeleteSymbols(ctx, ids); err != nil {
			return fmt.Errorf("delete symbols: %w", err)
		}
	}
	return nil
}

// Clear drops the whole collection and the symbol table.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.Vector.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector store: %w", err)
	}
	if s.Symbols != nil {
		if err := s.Symbols.Clear(ctx); err != nil {
			return fmt.Errorf("clear symbols: %w", err)
		}
	}
	return nil
}

// Search returns the n snippets nearest to text. n <= 0 means DefaultTopK.
func (s *Service) Search(ctx context.Context, text string, n int) ([]models.SemanticHit, error) {
	if n <= 0 {
		n = DefaultTopK
	}
	qvec, err := s.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.Vector.Query(ctx, qvec, n)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}
	return hits, nil
}

// FindSymbol looks up snippets by exact name.
func (s *Service) FindSymbol(ctx context.Context, name string) ([]models.Snippet, error) {
	if s.Symbols == nil {
		return nil, nil
	}
	return s.Symbols.FindByName(ctx, name)
}
