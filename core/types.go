package core

import "time"

// SourceKind identifies where an embedded item's text came from.
type SourceKind string

const (
	SourceTask    SourceKind = "task"
	SourceMemory  SourceKind = "memory"
	SourceMessage SourceKind = "message"
)

// EmbeddedItem is a text artifact with its embedding vector.
// Items are created when the source text is first persisted and
// regenerated whenever the text changes. All vectors produced by one
// provider version share the same dimension.
type EmbeddedItem struct {
	ID          string
	Kind        SourceKind
	Text        string
	Vector      []float32
	GeneratedAt time.Time
}

// Message is a single conversation turn.
type Message struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// ProjectContext describes the project a session belongs to.
// Passed through to the oracles so extraction and merge decisions
// can use project-specific vocabulary.
type ProjectContext struct {
	Name        string
	Description string
	TechStack   []string
}
