package embeddings

import (
	"context"
	"errors"
)

var ErrUnknownProvider = errors.New("unknown embedding provider")

type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
