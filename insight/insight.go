// Package insight defines candidate insights and the extraction oracle
// capability. Extraction is delegated to an injected oracle (LLM-backed
// in production, static in tests); this package owns the validation and
// significance filtering applied to whatever the oracle returns.
package insight

import (
	"context"
	"log"

	"github.com/becomeliminal/mnemo-go-sdk/core"
)

// Type classifies an insight.
type Type string

const (
	TypeDecision Type = "decision"
	TypeFeature  Type = "feature"
	TypeNote     Type = "note"
)

// CandidateInsight is one discrete fact or decision extracted from a
// session. Ephemeral: produced once per consolidation run, never
// persisted directly.
type CandidateInsight struct {
	Content      string
	Category     string // existing category or a proposed new one
	Significance float64
	Type         Type
	Keywords     []string
	NewCategory  bool // the extractor proposed Category; creation happens in the store
}

// Extraction is the oracle's output for one session.
type Extraction struct {
	Insights         []CandidateInsight
	SessionRelevance float64 // [0, 1]
}

// Extractor is the insight-oracle capability: it turns a session
// transcript into candidate insights. Implementations may propose new
// category names but never create categories themselves.
type Extractor interface {
	Extract(ctx context.Context, transcript []core.Message, existingCategories []string, project core.ProjectContext) (*Extraction, error)
}

// DefaultMinSignificance is the threshold below which insights are
// discarded during filtering.
const DefaultMinSignificance = 0.5

// Filter drops malformed insights (missing content or category) and
// insights below the significance threshold. Each insight is judged
// independently; one bad entry never discards the rest. Returns the
// kept insights and the dropped count.
func Filter(insights []CandidateInsight, minSignificance float64) ([]CandidateInsight, int) {
	kept := make([]CandidateInsight, 0, len(insights))
	dropped := 0

	for _, ins := range insights {
		if ins.Content == "" || ins.Category == "" {
			log.Printf("[INSIGHT] Dropping malformed insight (missing content or category)")
			dropped++
			continue
		}
		if ins.Significance < minSignificance {
			dropped++
			continue
		}
		if ins.Type == "" {
			ins.Type = TypeNote
		}
		kept = append(kept, ins)
	}
	return kept, dropped
}
