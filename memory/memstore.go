package memory

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore keeps consolidated memories in process memory.
// Suitable for local development and tests; production setups use the
// sqlite store.
type InMemoryStore struct {
	mu       sync.Mutex
	memories map[memoryKey]*ConsolidatedMemory
	locks    map[memoryKey]*sync.Mutex
}

type memoryKey struct {
	projectID string
	category  string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		memories: make(map[memoryKey]*ConsolidatedMemory),
		locks:    make(map[memoryKey]*sync.Mutex),
	}
}

// pairLock returns the mutex serializing mutations for one pair.
func (s *InMemoryStore) pairLock(key memoryKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// GetOrCreate returns the pair's memory, creating it on first access.
func (s *InMemoryStore) GetOrCreate(ctx context.Context, projectID, category string) (*ConsolidatedMemory, error) {
	key := memoryKey{projectID, category}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mem, ok := s.memories[key]; ok {
		return mem, nil
	}
	mem := NewConsolidatedMemory(projectID, category)
	s.memories[key] = mem
	return mem, nil
}

// Get returns the pair's memory or ErrNotFound.
func (s *InMemoryStore) Get(ctx context.Context, projectID, category string) (*ConsolidatedMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.memories[memoryKey{projectID, category}]
	if !ok {
		return nil, ErrNotFound
	}
	return mem, nil
}

// List returns all of a project's memories ordered by category name.
func (s *InMemoryStore) List(ctx context.Context, projectID string) ([]*ConsolidatedMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var memories []*ConsolidatedMemory
	for key, mem := range s.memories {
		if key.projectID == projectID {
			memories = append(memories, mem)
		}
	}
	sort.Slice(memories, func(i, j int) bool {
		return memories[i].Category < memories[j].Category
	})
	return memories, nil
}

// Update runs fn against a draft copy of the pair's memory under the
// pair's lock and swaps the draft in only when fn succeeds. A failed
// update therefore discards every mutation, readers never observe one
// in progress, and a pair whose only update failed is never created.
func (s *InMemoryStore) Update(ctx context.Context, projectID, category string, fn func(*ConsolidatedMemory) error) error {
	key := memoryKey{projectID, category}

	lock := s.pairLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	current, ok := s.memories[key]
	s.mu.Unlock()

	var draft *ConsolidatedMemory
	if ok {
		draft = current.Clone()
	} else {
		draft = NewConsolidatedMemory(projectID, category)
	}

	if err := fn(draft); err != nil {
		return err
	}

	s.mu.Lock()
	s.memories[key] = draft
	s.mu.Unlock()
	return nil
}
