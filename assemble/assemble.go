package assemble

import (
	"fmt"
	"strings"

	"github.com/becomeliminal/mnemo-go-sdk/core"
	"github.com/becomeliminal/mnemo-go-sdk/rank"
)

// Config holds assembler limits.
type Config struct {
	// MaxChars is the character budget for the assembled payload.
	// Default: 6000.
	MaxChars int

	// MaxRecentTurns caps how many recent conversation turns are
	// considered before the character budget applies. Default: 10.
	MaxRecentTurns int
}

// DefaultConfig returns the limits used when Config is nil.
var DefaultConfig = &Config{
	MaxChars:       6000,
	MaxRecentTurns: 10,
}

// Assembler combines ranked items and recent conversation into a
// bounded textual payload for prompt injection. Stateless: every call
// works from caller-supplied snapshots.
type Assembler struct {
	config *Config
}

// New creates an assembler. A nil config uses DefaultConfig.
func New(config *Config) *Assembler {
	if config == nil {
		config = DefaultConfig
	}
	return &Assembler{config: config}
}

// Assemble renders the context payload under the character budget.
// When content must be dropped, lowest priority goes first:
// tasks before memories, memories before conversation turns, and the
// current query is always kept. Within tasks and memories the
// lowest-similarity entries drop first; within the conversation the
// oldest turns drop first.
func (a *Assembler) Assemble(recent []core.Message, tasks, memories []rank.Match, query string) string {
	budget := a.config.MaxChars

	querySection := "=== CURRENT QUERY ===\n" + query
	if len(querySection) > budget {
		querySection = querySection[:budget]
	}
	budget -= len(querySection)

	// Keep the newest turns that fit, rendered oldest-first.
	turns := recent
	if len(turns) > a.config.MaxRecentTurns {
		turns = turns[len(turns)-a.config.MaxRecentTurns:]
	}
	var kept []string
	conversationOverhead := len("\n\n=== RECENT CONVERSATION ===")
	used := conversationOverhead
	for i := len(turns) - 1; i >= 0; i-- {
		line := fmt.Sprintf("%s: %s", turns[i].Role, turns[i].Content)
		if used+len(line)+1 > budget {
			break
		}
		used += len(line) + 1
		kept = append([]string{line}, kept...)
	}
	conversationSection := ""
	if len(kept) > 0 {
		conversationSection = "\n\n=== RECENT CONVERSATION ===\n" + strings.Join(kept, "\n")
		budget -= len(conversationSection)
	}

	memorySection, budget := renderMatches("RELEVANT MEMORIES", memories, budget)
	taskSection, _ := renderMatches("RELEVANT TASKS", tasks, budget)

	return querySection + conversationSection + memorySection + taskSection
}

// renderMatches renders a match section in rank order, stopping at the
// first entry that would exceed the budget. Returns the section text
// and the remaining budget.
func renderMatches(header string, matches []rank.Match, budget int) (string, int) {
	if len(matches) == 0 {
		return "", budget
	}

	head := "\n\n=== " + header + " ==="
	used := len(head)
	var lines []string
	for i, m := range matches {
		line := fmt.Sprintf("%d. [%.2f] %s", i+1, m.Score, m.Item.Text)
		if used+len(line)+1 > budget {
			break
		}
		used += len(line) + 1
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return "", budget
	}
	section := head + "\n" + strings.Join(lines, "\n")
	return section, budget - len(section)
}
