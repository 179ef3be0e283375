package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/becomeliminal/mnemo-go-sdk/memory"
	"github.com/becomeliminal/mnemo-go-sdk/memory/store/sqlite"
)

func newStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memories.db")
	store, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStore_UpdateAndGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	err := store.Update(ctx, "proj-1", "architecture", func(m *memory.ConsolidatedMemory) error {
		m.UpsertSection("", "Service Layout", "gateway fronting two workers", []string{"gateway"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	mem, err := store.Get(ctx, "proj-1", "architecture")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if mem.Version != 1 || len(mem.Sections) != 1 {
		t.Fatalf("got version %d with %d sections", mem.Version, len(mem.Sections))
	}
	s := mem.Sections[0]
	if s.Key != "service_layout" || s.Content != "gateway fronting two workers" {
		t.Errorf("wrong section: %+v", s)
	}
	if len(s.Keywords) != 1 || s.Keywords[0] != "gateway" {
		t.Errorf("keywords lost on roundtrip: %v", s.Keywords)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memories.db")

	store, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	err = store.Update(ctx, "proj-1", "decisions", func(m *memory.ConsolidatedMemory) error {
		m.UpsertSection("", "Queue Choice", "NATS over RabbitMQ", nil)
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	mem, err := reopened.Get(ctx, "proj-1", "decisions")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if len(mem.Sections) != 1 || mem.Sections[0].Content != "NATS over RabbitMQ" {
		t.Errorf("persisted content lost: %+v", mem.Sections)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newStore(t)
	if _, err := store.Get(context.Background(), "proj-1", "nope"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStore_ListOrdered(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	for _, c := range []string{"security", "architecture"} {
		if _, err := store.GetOrCreate(ctx, "proj-1", c); err != nil {
			t.Fatalf("GetOrCreate %s: %v", c, err)
		}
	}
	if _, err := store.GetOrCreate(ctx, "proj-2", "architecture"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	memories, err := store.List(ctx, "proj-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(memories) != 2 {
		t.Fatalf("got %d memories, want 2", len(memories))
	}
	if memories[0].Category != "architecture" || memories[1].Category != "security" {
		t.Errorf("wrong order: %s, %s", memories[0].Category, memories[1].Category)
	}
}

func TestStore_UpdateErrorDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	if _, err := store.GetOrCreate(ctx, "proj-1", "notes"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	wantErr := errors.New("resolver failed")
	err := store.Update(ctx, "proj-1", "notes", func(m *memory.ConsolidatedMemory) error {
		m.UpsertSection("", "Doomed", "never written", nil)
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want the callback error", err)
	}

	mem, err := store.Get(ctx, "proj-1", "notes")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(mem.Sections) != 0 || mem.Version != 0 {
		t.Errorf("failed update leaked into storage: %+v", mem)
	}
}

func TestStore_FailedUpdateDoesNotCreateCategory(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	err := store.Update(ctx, "proj-1", "ghost", func(m *memory.ConsolidatedMemory) error {
		m.UpsertSection("", "Never", "lands", nil)
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected the callback error")
	}

	if _, err := store.Get(ctx, "proj-1", "ghost"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("failed-only update created the category durably: err=%v", err)
	}
	memories, err := store.List(ctx, "proj-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(memories) != 0 {
		t.Errorf("List reports %d categories after a failed-only run", len(memories))
	}
}
