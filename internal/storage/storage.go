package storage

import (
	"context"
	"errors"

	"github.com/0x5457/loca/internal/models"
)

var ErrUnknownBackend = errors.New("unknown vector store backend")

// SymbolStore is an exact-name index over named snippets.
type SymbolStore interface {
	UpsertSymbols(ctx context.Context, snippets []models.Snippet) error
	DeleteSymbols(ctx context.Context, ids []string) error
	FindByName(ctx context.Context, name string) ([]models.Snippet, error)
	Clear(ctx context.Context) error
	Close() error
}

// VectorStore keeps one embedding per snippet id. A store that has never
// been written to behaves as empty for Query and Delete.
type VectorStore interface {
	Upsert(ctx context.Context, snippets []models.Snippet, embeddings [][]float32) error
	Delete(ctx context.Context, ids []string) error
	Query(ctx context.Context, embedding []float32, topK int) ([]models.SemanticHit, error)
	Clear(ctx context.Context) error
	Close() error
}
