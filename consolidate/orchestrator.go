package consolidate

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/becomeliminal/mnemo-go-sdk/core"
	"github.com/becomeliminal/mnemo-go-sdk/insight"
	"github.com/becomeliminal/mnemo-go-sdk/memory"
	"github.com/becomeliminal/mnemo-go-sdk/merge"
)

// Orchestrator drives the session-completion workflow:
// extract insights, resolve each against the knowledge base, persist
// per category. Invoked by the session lifecycle ("session ended") or a
// manual trigger.
type Orchestrator struct {
	transcripts TranscriptProvider
	store       memory.Store
	extractor   insight.Extractor
	resolver    *merge.Resolver
	config      *Config
}

// New creates an orchestrator. A nil config uses DefaultConfig.
func New(transcripts TranscriptProvider, store memory.Store, extractor insight.Extractor, resolver *merge.Resolver, config *Config) *Orchestrator {
	if config == nil {
		config = DefaultConfig
	}
	return &Orchestrator{
		transcripts: transcripts,
		store:       store,
		extractor:   extractor,
		resolver:    resolver,
		config:      config,
	}
}

// Run consolidates one session into the project's knowledge base.
// Categories are processed independently: a failure in one is recorded
// in its outcome and never blocks the others. Re-running on an
// unchanged session is safe; already-merged insights resolve to no-ops.
//
// Run returns an error only when the store itself is unusable; every
// other failure is captured in the Result.
func (o *Orchestrator) Run(ctx context.Context, projectID, sessionID string, project core.ProjectContext) (*Result, error) {
	result := &Result{
		RunID:      uuid.New().String(),
		ProjectID:  projectID,
		SessionID:  sessionID,
		State:      StateIdle,
		Categories: make(map[string]*CategoryOutcome),
	}

	// === EXTRACT ===
	result.State = StateExtracting

	transcript, err := o.transcripts.Transcript(ctx, projectID, sessionID)
	if err != nil {
		log.Printf("[CONSOLIDATE] Transcript load failed for session %s: %v", sessionID, err)
		result.State = StateFailed
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("load transcript: %v", err)
		return result, nil
	}
	if len(transcript) == 0 {
		log.Printf("[CONSOLIDATE] Empty transcript for session %s, skipping", sessionID)
		result.State = StateSkipped
		result.Status = StatusSkipped
		return result, nil
	}

	existing, err := o.store.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]string, 0, len(existing))
	for _, mem := range existing {
		categories = append(categories, mem.Category)
	}

	extractCtx, cancel := context.WithTimeout(ctx, o.config.ExtractTimeout)
	extraction, err := o.extractor.Extract(extractCtx, transcript, categories, project)
	cancel()
	if err != nil {
		// Extraction failure degrades to an empty run, never an error.
		log.Printf("[CONSOLIDATE] Extraction failed for session %s: %v", sessionID, err)
		result.State = StateSkipped
		result.Status = StatusSkipped
		result.Error = fmt.Sprintf("extract insights: %v", err)
		return result, nil
	}
	result.SessionRelevance = extraction.SessionRelevance

	kept, dropped := insight.Filter(extraction.Insights, o.config.MinSignificance)
	result.Skipped += dropped
	if len(kept) == 0 {
		log.Printf("[CONSOLIDATE] No significant insights for session %s (dropped %d)", sessionID, dropped)
		result.State = StateSkipped
		result.Status = StatusSkipped
		return result, nil
	}

	log.Printf("[CONSOLIDATE] Session %s: %d insights across run %s",
		sessionID, len(kept), result.RunID)

	// === RESOLVE & PERSIST, per category ===
	result.State = StateResolving
	for _, category := range categoryOrder(kept) {
		o.consolidateCategory(ctx, result, projectID, category, groupFor(kept, category))
	}

	// === STATUS ===
	committed, failed := 0, 0
	for _, outcome := range result.Categories {
		if outcome.Error != "" {
			failed++
		} else {
			committed++
		}
	}
	switch {
	case committed > 0 && failed == 0:
		result.State = StateCompleted
		result.Status = StatusCompleted
	case committed > 0:
		result.State = StateCompleted
		result.Status = StatusPartial
	default:
		result.State = StateFailed
		result.Status = StatusFailed
	}

	log.Printf("[CONSOLIDATE] Run %s %s: %d processed, %d skipped, %d categories",
		result.RunID, result.Status, result.Processed, result.Skipped, len(result.Categories))
	return result, nil
}

// consolidateCategory applies one category's insights under the
// (project, category) lock. Resolution happens inside the locked
// update so concurrent runs for the same pair serialize end to end.
func (o *Orchestrator) consolidateCategory(ctx context.Context, result *Result, projectID, category string, insights []insight.CandidateInsight) {
	outcome := &CategoryOutcome{}
	result.Categories[category] = outcome

	err := o.store.Update(ctx, projectID, category, func(mem *memory.ConsolidatedMemory) error {
		created := mem.Version == 0 && len(mem.Sections) == 0

		for _, ins := range insights {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			result.State = StateResolving
			resolution := o.resolver.Resolve(ctx, mem, ins)

			result.State = StatePersisting
			if applied := applyResolution(mem, resolution); applied {
				if resolution.Outcome == merge.NoMatch {
					outcome.NewSections++
				} else {
					outcome.MergedSections++
				}
			}
			outcome.Insights++
		}

		outcome.Created = created
		return nil
	})

	if err != nil {
		// Abort only this category; the rest of the run continues.
		log.Printf("[CONSOLIDATE] Category %q aborted: %v", category, err)
		outcome.Error = err.Error()
		outcome.NewSections, outcome.MergedSections = 0, 0
		result.Skipped += len(insights)
		return
	}

	result.Processed += len(insights)
	if outcome.Created {
		result.NewCategories = append(result.NewCategories, category)
	}
}

// applyResolution upserts the resolved section, skipping true no-ops so
// idempotent re-runs leave versions untouched.
func applyResolution(mem *memory.ConsolidatedMemory, res *merge.Resolution) bool {
	if res.SectionKey != "" {
		if existing, ok := mem.Section(res.SectionKey); ok {
			if existing.Title == res.Title && existing.Content == res.Content {
				return false
			}
		}
	}
	mem.UpsertSection(res.SectionKey, res.Title, res.Content, res.Keywords)
	return true
}

// categoryOrder returns categories in first-seen insight order.
func categoryOrder(insights []insight.CandidateInsight) []string {
	seen := make(map[string]bool)
	var order []string
	for _, ins := range insights {
		if !seen[ins.Category] {
			seen[ins.Category] = true
			order = append(order, ins.Category)
		}
	}
	return order
}

func groupFor(insights []insight.CandidateInsight, category string) []insight.CandidateInsight {
	var group []insight.CandidateInsight
	for _, ins := range insights {
		if ins.Category == category {
			group = append(group, ins)
		}
	}
	return group
}
