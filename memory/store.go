package memory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no memory exists for the pair.
var ErrNotFound = errors.New("consolidated memory not found")

// Store is the persistence collaborator for consolidated memories.
// Implementations: InMemoryStore (local/testing), sqlite.Store
// (durable).
//
// Update is the only mutation path. Calls for the same (projectID,
// category) pair are serialized by the implementation, so concurrent
// consolidation runs can never interleave section updates and lose one:
// mutations are additive, last-writer-wins is not possible through this
// interface.
type Store interface {
	// GetOrCreate returns the memory for (projectID, category),
	// creating an empty one on first access and the same document
	// thereafter.
	GetOrCreate(ctx context.Context, projectID, category string) (*ConsolidatedMemory, error)

	// Get returns one category's memory, or ErrNotFound.
	Get(ctx context.Context, projectID, category string) (*ConsolidatedMemory, error)

	// List returns all categories' memories for a project, ordered by
	// category name.
	List(ctx context.Context, projectID string) ([]*ConsolidatedMemory, error)

	// Update runs fn against the pair's memory under the pair's lock,
	// lazily creating the memory, and persists the result when fn
	// returns nil. An error from fn discards the mutation.
	Update(ctx context.Context, projectID, category string, fn func(*ConsolidatedMemory) error) error
}
