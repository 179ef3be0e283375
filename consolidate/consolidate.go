package consolidate

import (
	"context"
	"time"

	"github.com/becomeliminal/mnemo-go-sdk/core"
)

// State is the orchestrator's position in one consolidation run.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateResolving  State = "resolving"
	StatePersisting State = "persisting"
	StateCompleted  State = "completed"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// Status summarizes a run for callers.
type Status string

const (
	// StatusCompleted: every category committed.
	StatusCompleted Status = "completed"

	// StatusPartial: some categories committed, some failed.
	StatusPartial Status = "partial"

	// StatusSkipped: nothing to consolidate (empty session, no
	// significant insights, or extraction failure).
	StatusSkipped Status = "skipped"

	// StatusFailed: no category committed.
	StatusFailed Status = "failed"
)

// CategoryOutcome reports what happened to one category in a run.
type CategoryOutcome struct {
	Created        bool // memory lazily created by this run
	Insights       int  // insights applied to this category
	NewSections    int
	MergedSections int
	Error          string // set when the category was aborted
}

// Result is returned synchronously from Run and never persisted.
// Every extracted insight is accounted for: Processed + Skipped equals
// the number of insights the extractor produced.
type Result struct {
	RunID            string
	ProjectID        string
	SessionID        string
	Status           Status
	State            State
	Processed        int
	Skipped          int
	SessionRelevance float64
	Categories       map[string]*CategoryOutcome
	NewCategories    []string
	Error            string
}

// TranscriptProvider supplies a session's ordered conversation turns.
type TranscriptProvider interface {
	Transcript(ctx context.Context, projectID, sessionID string) ([]core.Message, error)
}

// Config holds orchestrator tuning.
type Config struct {
	// MinSignificance filters extracted insights. Default: 0.5.
	MinSignificance float64

	// ExtractTimeout bounds the extraction call. Default: 60s.
	ExtractTimeout time.Duration
}

// DefaultConfig returns the tuning used when Config is nil.
var DefaultConfig = &Config{
	MinSignificance: 0.5,
	ExtractTimeout:  60 * time.Second,
}
