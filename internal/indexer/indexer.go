package indexer

import (
	"context"
	"errors"

	"github.com/0x5457/loca/internal/models"
)

var (
	ErrIndexInProgress  = errors.New("an index run is already in progress")
	ErrDuplicateSnippet = errors.New("duplicate snippet id with different code")
)

// Indexer synchronises a project with its vector collection.
type Indexer interface {
	IndexProject(ctx context.Context, root string) (*models.SyncStats, error)
	// IndexProjectProgress runs IndexProject in the background. Both channels
	// are closed when the run ends; the error channel yields at most one
	// non-nil error.
	IndexProjectProgress(ctx context.Context, root string) (<-chan models.IndexProgress, <-chan error)
	Clear(ctx context.Context) error
}

// Collection is the vector store as seen by the engine: bulk add and
// delete by snippet id, and a full reset.
type Collection interface {
	Add(ctx context.Context, snippets []models.Snippet) error
	Delete(ctx context.Context, ids []string) error
	Clear(ctx context.Context) error
}
