package consolidate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/becomeliminal/mnemo-go-sdk/consolidate"
	"github.com/becomeliminal/mnemo-go-sdk/core"
	"github.com/becomeliminal/mnemo-go-sdk/embedding/mock"
	"github.com/becomeliminal/mnemo-go-sdk/insight"
	"github.com/becomeliminal/mnemo-go-sdk/memory"
	"github.com/becomeliminal/mnemo-go-sdk/merge"
	"github.com/becomeliminal/mnemo-go-sdk/oracle"
)

// stubTranscripts serves canned transcripts.
type stubTranscripts struct {
	messages []core.Message
	err      error
}

func (s *stubTranscripts) Transcript(context.Context, string, string) ([]core.Message, error) {
	return s.messages, s.err
}

// stubExtractor returns a fixed extraction.
type stubExtractor struct {
	extraction *insight.Extraction
	err        error
}

func (s *stubExtractor) Extract(context.Context, []core.Message, []string, core.ProjectContext) (*insight.Extraction, error) {
	return s.extraction, s.err
}

// faultyStore fails updates for one category.
type faultyStore struct {
	memory.Store
	failCategory string
}

func (s *faultyStore) Update(ctx context.Context, projectID, category string, fn func(*memory.ConsolidatedMemory) error) error {
	if category == s.failCategory {
		return errors.New("disk full")
	}
	return s.Store.Update(ctx, projectID, category, fn)
}

// listlessStore cannot enumerate categories.
type listlessStore struct {
	memory.Store
}

func (listlessStore) List(context.Context, string) ([]*memory.ConsolidatedMemory, error) {
	return nil, errors.New("store offline")
}

func someTranscript() *stubTranscripts {
	return &stubTranscripts{messages: []core.Message{
		{Role: "user", Content: "how should events flow?"},
		{Role: "assistant", Content: "through the bus"},
	}}
}

func newOrchestrator(t *testing.T, transcripts consolidate.TranscriptProvider, store memory.Store, extractor insight.Extractor) *consolidate.Orchestrator {
	t.Helper()
	resolver := merge.New(mock.New(), oracle.NewStatic(), &merge.Config{MatchThreshold: 0.4})
	return consolidate.New(transcripts, store, extractor, resolver, nil)
}

func TestRun_PersistsInsightsPerCategory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	extractor := &stubExtractor{extraction: &insight.Extraction{
		SessionRelevance: 0.8,
		Insights: []insight.CandidateInsight{
			{Content: "Use NATS for the event bus.", Category: "architecture", Significance: 0.9, NewCategory: true},
			{Content: "Rotate signing keys monthly.", Category: "security", Significance: 0.7, NewCategory: true},
		},
	}}

	o := newOrchestrator(t, someTranscript(), store, extractor)
	result, err := o.Run(ctx, "proj-1", "sess-1", core.ProjectContext{Name: "demo"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != consolidate.StatusCompleted {
		t.Fatalf("got status %s, want %s (error: %s)", result.Status, consolidate.StatusCompleted, result.Error)
	}
	if result.State != consolidate.StateCompleted {
		t.Errorf("got state %s, want %s", result.State, consolidate.StateCompleted)
	}
	if result.Processed != 2 || result.Skipped != 0 {
		t.Errorf("processed=%d skipped=%d, want 2/0", result.Processed, result.Skipped)
	}
	if result.SessionRelevance != 0.8 {
		t.Errorf("relevance = %f, want 0.8", result.SessionRelevance)
	}
	if len(result.NewCategories) != 2 {
		t.Errorf("new categories = %v, want both", result.NewCategories)
	}

	arch, err := store.Get(ctx, "proj-1", "architecture")
	if err != nil {
		t.Fatalf("Get architecture: %v", err)
	}
	if len(arch.Sections) != 1 || !strings.Contains(arch.Sections[0].Content, "NATS") {
		t.Errorf("architecture memory wrong: %+v", arch.Sections)
	}
	sec, err := store.Get(ctx, "proj-1", "security")
	if err != nil {
		t.Fatalf("Get security: %v", err)
	}
	if len(sec.Sections) != 1 {
		t.Errorf("security memory wrong: %+v", sec.Sections)
	}
}

func TestRun_RerunIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	extractor := &stubExtractor{extraction: &insight.Extraction{
		SessionRelevance: 0.6,
		Insights: []insight.CandidateInsight{
			{Content: "Use NATS for the event bus.", Category: "architecture", Significance: 0.9},
		},
	}}

	o := newOrchestrator(t, someTranscript(), store, extractor)
	if _, err := o.Run(ctx, "proj-1", "sess-1", core.ProjectContext{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	before, err := store.Get(ctx, "proj-1", "architecture")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	versionBefore := before.Version
	sectionsBefore := len(before.Sections)

	second, err := o.Run(ctx, "proj-1", "sess-1", core.ProjectContext{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Status != consolidate.StatusCompleted {
		t.Fatalf("second run status %s, want %s", second.Status, consolidate.StatusCompleted)
	}

	after, err := store.Get(ctx, "proj-1", "architecture")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(after.Sections) != sectionsBefore {
		t.Errorf("rerun added sections: %d -> %d", sectionsBefore, len(after.Sections))
	}
	if after.Version != versionBefore {
		t.Errorf("rerun bumped version: %d -> %d", versionBefore, after.Version)
	}
	outcome := second.Categories["architecture"]
	if outcome == nil || outcome.NewSections != 0 || outcome.MergedSections != 0 {
		t.Errorf("rerun should be a no-op: %+v", outcome)
	}
}

func TestRun_EmptyTranscriptSkips(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	o := newOrchestrator(t, &stubTranscripts{}, store, &stubExtractor{})

	result, err := o.Run(ctx, "proj-1", "sess-1", core.ProjectContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != consolidate.StatusSkipped {
		t.Errorf("got status %s, want %s", result.Status, consolidate.StatusSkipped)
	}
	if result.State != consolidate.StateSkipped {
		t.Errorf("got state %s, want %s", result.State, consolidate.StateSkipped)
	}
	if result.SessionRelevance != 0 {
		t.Errorf("relevance = %f, want 0", result.SessionRelevance)
	}

	memories, err := store.List(ctx, "proj-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(memories) != 0 {
		t.Errorf("empty session mutated the store: %d memories", len(memories))
	}
}

func TestRun_TranscriptFailureReportsFailed(t *testing.T) {
	o := newOrchestrator(t, &stubTranscripts{err: errors.New("session log corrupt")},
		memory.NewInMemoryStore(), &stubExtractor{})

	result, err := o.Run(context.Background(), "proj-1", "sess-1", core.ProjectContext{})
	if err != nil {
		t.Fatalf("transcript failure must not error the run: %v", err)
	}
	if result.Status != consolidate.StatusFailed {
		t.Errorf("got status %s, want %s", result.Status, consolidate.StatusFailed)
	}
	if result.State != consolidate.StateFailed {
		t.Errorf("got state %s, want %s", result.State, consolidate.StateFailed)
	}
	if result.Error == "" {
		t.Error("result should carry the failure reason")
	}
}

func TestRun_ExtractionFailureSkips(t *testing.T) {
	o := newOrchestrator(t, someTranscript(), memory.NewInMemoryStore(),
		&stubExtractor{err: errors.New("model timeout")})

	result, err := o.Run(context.Background(), "proj-1", "sess-1", core.ProjectContext{})
	if err != nil {
		t.Fatalf("extraction failure must not error the run: %v", err)
	}
	if result.Status != consolidate.StatusSkipped {
		t.Errorf("got status %s, want %s", result.Status, consolidate.StatusSkipped)
	}
	if result.Error == "" {
		t.Error("result should carry the failure reason")
	}
}

func TestRun_InsignificantInsightsSkip(t *testing.T) {
	extractor := &stubExtractor{extraction: &insight.Extraction{
		Insights: []insight.CandidateInsight{
			{Content: "Minor detail", Category: "notes", Significance: 0.1},
		},
	}}
	o := newOrchestrator(t, someTranscript(), memory.NewInMemoryStore(), extractor)

	result, err := o.Run(context.Background(), "proj-1", "sess-1", core.ProjectContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != consolidate.StatusSkipped {
		t.Errorf("got status %s, want %s", result.Status, consolidate.StatusSkipped)
	}
	if result.Skipped != 1 || result.Processed != 0 {
		t.Errorf("processed=%d skipped=%d, want 0/1", result.Processed, result.Skipped)
	}
}

func TestRun_CategoryFailureDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{Store: memory.NewInMemoryStore(), failCategory: "security"}
	extractor := &stubExtractor{extraction: &insight.Extraction{
		Insights: []insight.CandidateInsight{
			{Content: "Use NATS for the event bus.", Category: "architecture", Significance: 0.9},
			{Content: "Rotate signing keys monthly.", Category: "security", Significance: 0.9},
		},
	}}

	o := newOrchestrator(t, someTranscript(), store, extractor)
	result, err := o.Run(ctx, "proj-1", "sess-1", core.ProjectContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != consolidate.StatusPartial {
		t.Errorf("got status %s, want %s", result.Status, consolidate.StatusPartial)
	}
	if result.Processed != 1 || result.Skipped != 1 {
		t.Errorf("processed=%d skipped=%d, want 1/1", result.Processed, result.Skipped)
	}
	if result.Categories["security"].Error == "" {
		t.Error("failed category should carry its error")
	}
	if result.Categories["architecture"].Error != "" {
		t.Errorf("healthy category errored: %s", result.Categories["architecture"].Error)
	}

	if _, err := store.Store.(*memory.InMemoryStore).Get(ctx, "proj-1", "architecture"); err != nil {
		t.Errorf("healthy category not persisted: %v", err)
	}
}

func TestRun_StoreUnavailableErrors(t *testing.T) {
	o := newOrchestrator(t, someTranscript(), listlessStore{memory.NewInMemoryStore()}, &stubExtractor{})

	if _, err := o.Run(context.Background(), "proj-1", "sess-1", core.ProjectContext{}); err == nil {
		t.Fatal("unusable store must surface as an error")
	}
}
