// Package sqlite provides a durable memory.Store on a local SQLite
// database (pure-Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/becomeliminal/mnemo-go-sdk/memory"
)

// Store persists consolidated memories in a SQLite database, one row
// per (project, category) with the section list serialized as JSON.
// A few thousand sections per project fit comfortably in this shape.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

type pairKey struct {
	projectID string
	category  string
}

// New opens (and initializes) the database at dbPath.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{
		db:    db,
		locks: make(map[pairKey]*sync.Mutex),
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	query := `CREATE TABLE IF NOT EXISTS consolidated_memories (
		project_id TEXT NOT NULL,
		category   TEXT NOT NULL,
		version    INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		sections   TEXT NOT NULL,
		PRIMARY KEY (project_id, category)
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// pairLock returns the mutex serializing mutations for one pair.
// Locking is in-process: the engine is single-process by design.
func (s *Store) pairLock(key pairKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// GetOrCreate returns the pair's memory, inserting an empty document on
// first access.
func (s *Store) GetOrCreate(ctx context.Context, projectID, category string) (*memory.ConsolidatedMemory, error) {
	mem, err := s.Get(ctx, projectID, category)
	if err == nil {
		return mem, nil
	}
	if err != memory.ErrNotFound {
		return nil, err
	}

	mem = memory.NewConsolidatedMemory(projectID, category)
	if err := s.save(ctx, mem); err != nil {
		return nil, err
	}
	log.Printf("[SQLITE] Created memory: project=%s category=%s", projectID, category)
	return mem, nil
}

// Get loads one category's memory, or memory.ErrNotFound.
func (s *Store) Get(ctx context.Context, projectID, category string) (*memory.ConsolidatedMemory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version, created_at, sections FROM consolidated_memories
		 WHERE project_id = ? AND category = ?`, projectID, category)
	return scanMemory(row, projectID, category)
}

// List loads all of a project's memories ordered by category name.
func (s *Store) List(ctx context.Context, projectID string) ([]*memory.ConsolidatedMemory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, version, created_at, sections FROM consolidated_memories
		 WHERE project_id = ? ORDER BY category`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var memories []*memory.ConsolidatedMemory
	for rows.Next() {
		var category, sectionsJSON string
		var version int
		var createdAt time.Time
		if err := rows.Scan(&category, &version, &createdAt, &sectionsJSON); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		mem, err := buildMemory(projectID, category, version, createdAt, sectionsJSON)
		if err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}
	return memories, rows.Err()
}

// Update mutates the pair's memory under the pair's lock and persists
// the result when fn succeeds. An unknown pair is constructed in memory
// only: nothing reaches the database until fn returns nil, so a failed
// first update never creates the category row.
func (s *Store) Update(ctx context.Context, projectID, category string, fn func(*memory.ConsolidatedMemory) error) error {
	lock := s.pairLock(pairKey{projectID, category})
	lock.Lock()
	defer lock.Unlock()

	mem, err := s.Get(ctx, projectID, category)
	if err == memory.ErrNotFound {
		mem = memory.NewConsolidatedMemory(projectID, category)
	} else if err != nil {
		return err
	}

	if err := fn(mem); err != nil {
		return err
	}
	return s.save(ctx, mem)
}

func (s *Store) save(ctx context.Context, mem *memory.ConsolidatedMemory) error {
	sectionsJSON, err := json.Marshal(mem.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO consolidated_memories (project_id, category, version, created_at, sections)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, category) DO UPDATE SET
		   version = excluded.version,
		   sections = excluded.sections`,
		mem.ProjectID, mem.Category, mem.Version, mem.CreatedAt, string(sectionsJSON))
	if err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

func scanMemory(row *sql.Row, projectID, category string) (*memory.ConsolidatedMemory, error) {
	var sectionsJSON string
	var version int
	var createdAt time.Time
	if err := row.Scan(&version, &createdAt, &sectionsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, memory.ErrNotFound
		}
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	return buildMemory(projectID, category, version, createdAt, sectionsJSON)
}

func buildMemory(projectID, category string, version int, createdAt time.Time, sectionsJSON string) (*memory.ConsolidatedMemory, error) {
	var sections []*memory.MemorySection
	if err := json.Unmarshal([]byte(sectionsJSON), &sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	return &memory.ConsolidatedMemory{
		ProjectID: projectID,
		Category:  category,
		Sections:  sections,
		Version:   version,
		CreatedAt: createdAt,
	}, nil
}
