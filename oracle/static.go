package oracle

import (
	"context"
	"strings"

	"github.com/becomeliminal/mnemo-go-sdk/core"
	"github.com/becomeliminal/mnemo-go-sdk/insight"
	"github.com/becomeliminal/mnemo-go-sdk/memory"
	"github.com/becomeliminal/mnemo-go-sdk/merge"
)

// Static is a deterministic, in-process oracle. It implements both the
// insight extractor and the merge oracle with plain text heuristics, so
// orchestration logic and invariants can be exercised without an
// inference backend. Also usable offline as a crude fallback.
type Static struct{}

// NewStatic creates the deterministic oracle.
func NewStatic() *Static {
	return &Static{}
}

// conflictMarkers signal that an insight supersedes prior facts.
var conflictMarkers = []string{
	"instead of", "no longer", "replaced", "replaces",
	"switch from", "rather than", "deprecated", "migrating from",
}

// decisionCues mark sentences worth extracting as decisions.
var decisionCues = []string{
	"decided", "will use", "chose", "agreed", "going with", "implement",
}

// Extract derives insights from assistant turns containing decision
// cues. Categories are matched by name occurrence in the sentence;
// unmatched insights propose the "notes" category.
func (s *Static) Extract(ctx context.Context, transcript []core.Message, existingCategories []string, project core.ProjectContext) (*insight.Extraction, error) {
	extraction := &insight.Extraction{}

	for _, msg := range transcript {
		if msg.Role != "assistant" {
			continue
		}
		for _, sentence := range splitSentences(msg.Content) {
			cue := containsAny(sentence, decisionCues)
			if !cue || len(sentence) < 20 {
				continue
			}

			category, isNew := matchCategory(sentence, existingCategories)
			extraction.Insights = append(extraction.Insights, insight.CandidateInsight{
				Content:      sentence,
				Category:     category,
				Significance: 0.7,
				Type:         insight.TypeDecision,
				NewCategory:  isNew,
			})
		}
	}

	if n := len(extraction.Insights); n > 0 {
		extraction.SessionRelevance = 0.25 * float64(n)
		if extraction.SessionRelevance > 1 {
			extraction.SessionRelevance = 1
		}
	}
	return extraction, nil
}

// Decide blends or reconciles deterministically. Sentences from the
// insight that the section already contains are skipped; on conflict
// (marker phrase present) the insight's sentences lead and existing
// sentences they supersede are dropped, while unrelated sentences are
// kept.
func (s *Static) Decide(ctx context.Context, section *memory.MemorySection, ins insight.CandidateInsight, memoryContent string) (*merge.Decision, error) {
	existing := splitSentences(section.Content)
	incoming := splitSentences(ins.Content)
	conflict := containsAny(ins.Content, conflictMarkers)

	var sentences []string
	if conflict {
		// Insight leads; existing sentences it supersedes
		// (high word overlap) are dropped.
		sentences = append(sentences, incoming...)
		for _, prev := range existing {
			if maxOverlap(prev, incoming) < 0.5 {
				sentences = append(sentences, prev)
			}
		}
	} else {
		// Existing content stays; genuinely new sentences append.
		sentences = append(sentences, existing...)
		for _, next := range incoming {
			if maxOverlap(next, existing) < 0.8 {
				sentences = append(sentences, next)
			}
		}
	}

	return &merge.Decision{
		Conflict: conflict,
		Title:    section.Title,
		Content:  joinSentences(sentences),
	}, nil
}

func splitSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		for _, part := range strings.Split(line, ". ") {
			part = strings.TrimSpace(strings.TrimSuffix(part, "."))
			if part != "" {
				sentences = append(sentences, part)
			}
		}
	}
	return sentences
}

func joinSentences(sentences []string) string {
	if len(sentences) == 0 {
		return ""
	}
	return strings.Join(sentences, ". ") + "."
}

// maxOverlap returns the highest word-set overlap ratio between
// sentence and any of the others, measured against the smaller set.
func maxOverlap(sentence string, others []string) float64 {
	words := fieldSet(sentence)
	if len(words) == 0 {
		return 0
	}

	best := 0.0
	for _, other := range others {
		otherWords := fieldSet(other)
		if len(otherWords) == 0 {
			continue
		}
		shared := 0
		for w := range words {
			if otherWords[w] {
				shared++
			}
		}
		smaller := len(words)
		if len(otherWords) < smaller {
			smaller = len(otherWords)
		}
		if ratio := float64(shared) / float64(smaller); ratio > best {
			best = ratio
		}
	}
	return best
}

func fieldSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,!?;:\"'()")] = true
	}
	delete(set, "")
	return set
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// matchCategory picks the first existing category named in the
// sentence, or proposes "notes".
func matchCategory(sentence string, existing []string) (string, bool) {
	lower := strings.ToLower(sentence)
	for _, cat := range existing {
		if strings.Contains(lower, strings.ToLower(cat)) {
			return cat, false
		}
	}
	return "notes", true
}
