// Package merge decides how a candidate insight lands in a consolidated
// memory: as a new section, blended into the best-matching section, or
// reconciled against a section it contradicts.
//
// Matching is similarity-based and in-process; the merge text itself
// (blend or reconcile) comes from an injected oracle so it can be
// LLM-backed in production and deterministic in tests.
package merge

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/becomeliminal/mnemo-go-sdk/embedding"
	"github.com/becomeliminal/mnemo-go-sdk/insight"
	"github.com/becomeliminal/mnemo-go-sdk/memory"
	"github.com/becomeliminal/mnemo-go-sdk/rank"
)

// Outcome classifies a resolution.
type Outcome string

const (
	// NoMatch: no existing section is close enough; create a new one.
	NoMatch Outcome = "no_match"

	// MatchNoConflict: the insight extends a section; blend without
	// verbatim duplication.
	MatchNoConflict Outcome = "match_no_conflict"

	// MatchConflict: the insight contradicts part of a section;
	// reconcile, superseding contradicted facts while preserving
	// unrelated prior detail.
	MatchConflict Outcome = "match_conflict"
)

// Decision is the oracle's verdict for one insight against one section.
// Title and Content are always populated; both must be derivable from
// the existing section plus the insight, never invented wholesale.
type Decision struct {
	Conflict bool
	Title    string
	Content  string
}

// Oracle produces merged section text. memoryContent is the rendered
// full memory, giving the oracle category-wide context.
type Oracle interface {
	Decide(ctx context.Context, section *memory.MemorySection, ins insight.CandidateInsight, memoryContent string) (*Decision, error)
}

// Config holds resolver tuning.
type Config struct {
	// MatchThreshold is the similarity above which an insight is
	// considered to target an existing section rather than a new one.
	// The source system fixes no constant here, so it is configurable;
	// 0.55 works well with normalized sentence embeddings.
	MatchThreshold float64
}

// DefaultConfig returns the tuning used when Config is nil.
var DefaultConfig = &Config{
	MatchThreshold: 0.55,
}

// Resolution is what the orchestrator applies to the store.
type Resolution struct {
	Outcome    Outcome
	SectionKey string // empty for NoMatch: the store derives a key from Title
	Title      string
	Content    string
	Keywords   []string
}

// Resolver finds the best-matching section for each insight and asks
// the oracle for merged text when one exists.
type Resolver struct {
	provider embedding.Provider
	oracle   Oracle
	config   *Config
}

// New creates a resolver. A nil config uses DefaultConfig.
func New(provider embedding.Provider, oracle Oracle, config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig
	}
	return &Resolver{
		provider: provider,
		oracle:   oracle,
		config:   config,
	}
}

// Resolve decides where ins lands in mem. It never fails the insight:
// an unusable oracle or embedder degrades to NoMatch, creating a new
// section rather than losing the insight.
func (r *Resolver) Resolve(ctx context.Context, mem *memory.ConsolidatedMemory, ins insight.CandidateInsight) *Resolution {
	section, score := r.bestMatch(ctx, mem, ins)
	if section == nil || score < r.config.MatchThreshold {
		return &Resolution{
			Outcome:  NoMatch,
			Title:    TitleFromContent(ins.Content),
			Content:  ins.Content,
			Keywords: ins.Keywords,
		}
	}

	decision, err := r.oracle.Decide(ctx, section, ins, mem.FullContent())
	if err != nil {
		// Merge decision failed: create a new section instead of
		// dropping the insight.
		log.Printf("[MERGE] Merge decision failed for section %q, creating new section: %v",
			section.Key, err)
		return &Resolution{
			Outcome:  NoMatch,
			Title:    TitleFromContent(ins.Content),
			Content:  ins.Content,
			Keywords: ins.Keywords,
		}
	}

	outcome := MatchNoConflict
	if decision.Conflict {
		outcome = MatchConflict
	}
	title := decision.Title
	if title == "" {
		title = section.Title
	}
	return &Resolution{
		Outcome:    outcome,
		SectionKey: section.Key,
		Title:      title,
		Content:    decision.Content,
		Keywords:   ins.Keywords,
	}
}

// bestMatch scores the insight against every section by content
// similarity. Embedding-based when the provider is healthy, token
// overlap otherwise.
func (r *Resolver) bestMatch(ctx context.Context, mem *memory.ConsolidatedMemory, ins insight.CandidateInsight) (*memory.MemorySection, float64) {
	if len(mem.Sections) == 0 {
		return nil, 0
	}

	insVec, err := r.provider.Embed(ctx, ins.Content)
	if err != nil {
		if !errors.Is(err, embedding.ErrUnavailable) {
			log.Printf("[MERGE] Insight embedding failed, using token overlap: %v", err)
		}
		return r.bestMatchByOverlap(mem, ins)
	}

	var best *memory.MemorySection
	bestScore := -1.0
	for _, section := range mem.Sections {
		secVec, err := r.provider.Embed(ctx, section.Title+"\n"+section.Content)
		if err != nil {
			continue
		}
		score := rank.Cosine(insVec, secVec)
		if score > bestScore {
			best, bestScore = section, score
		}
	}
	return best, bestScore
}

// bestMatchByOverlap is the degraded-mode matcher: Jaccard similarity
// over lowercased word sets.
func (r *Resolver) bestMatchByOverlap(mem *memory.ConsolidatedMemory, ins insight.CandidateInsight) (*memory.MemorySection, float64) {
	insWords := wordSet(ins.Content)

	var best *memory.MemorySection
	bestScore := -1.0
	for _, section := range mem.Sections {
		score := jaccard(insWords, wordSet(section.Title+" "+section.Content))
		if score > bestScore {
			best, bestScore = section, score
		}
	}
	return best, bestScore
}

// TitleFromContent derives a section title from insight content: the
// first sentence, capped at 60 characters on a word boundary.
func TitleFromContent(content string) string {
	title := strings.TrimSpace(content)
	if idx := strings.IndexAny(title, ".\n"); idx > 0 {
		title = title[:idx]
	}
	if len(title) > 60 {
		cut := strings.LastIndex(title[:60], " ")
		if cut <= 0 {
			cut = 60
		}
		title = title[:cut]
	}
	return strings.TrimSpace(title)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
