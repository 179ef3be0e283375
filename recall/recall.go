// Package recall is the retrieval path consumed by the conversation
// support surface: it embeds the current query, ranks caller-supplied
// task and memory snapshots, and assembles a bounded context payload.
//
// When the embedding provider is degraded, recall does not fail; it
// orders candidates by recency instead of similarity.
package recall

import (
	"context"
	"errors"
	"log"

	"github.com/becomeliminal/mnemo-go-sdk/assemble"
	"github.com/becomeliminal/mnemo-go-sdk/core"
	"github.com/becomeliminal/mnemo-go-sdk/embedding"
	"github.com/becomeliminal/mnemo-go-sdk/rank"
)

// Config holds retrieval limits.
type Config struct {
	// TopK caps how many tasks and how many memories are ranked into
	// the context. Default: 5 each.
	TopK int

	// MinScore is the similarity floor for ranked items [-1, 1].
	// Default: 0.3.
	MinScore float64
}

// DefaultConfig returns the limits used when Config is nil.
var DefaultConfig = &Config{
	TopK:     5,
	MinScore: 0.3,
}

// Service wires the embedding provider, ranker, and assembler together.
type Service struct {
	provider  embedding.Provider
	assembler *assemble.Assembler
	config    *Config
}

// New creates a recall service. A nil config uses DefaultConfig.
func New(provider embedding.Provider, assembler *assemble.Assembler, config *Config) *Service {
	if config == nil {
		config = DefaultConfig
	}
	return &Service{
		provider:  provider,
		assembler: assembler,
		config:    config,
	}
}

// BuildContext returns the assembled context payload and its digest for
// the current query. Tasks and memories are snapshots owned by the
// caller; the service never mutates them.
func (s *Service) BuildContext(ctx context.Context, query string, recent []core.Message, tasks, memories []core.EmbeddedItem) (string, assemble.Digest, error) {
	rankedTasks, rankedMemories := s.rankCandidates(ctx, query, tasks, memories)

	payload := s.assembler.Assemble(recent, rankedTasks, rankedMemories, query)
	digest := s.assembler.Summarize(len(recent), rankedTasks, rankedMemories)
	return payload, digest, nil
}

// rankCandidates ranks by similarity when a query embedding is
// available and by recency otherwise.
func (s *Service) rankCandidates(ctx context.Context, query string, tasks, memories []core.EmbeddedItem) ([]rank.Match, []rank.Match) {
	queryVec, err := s.provider.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			log.Printf("[RECALL] Embedding unavailable, falling back to recency ordering")
		} else {
			log.Printf("[RECALL] Query embedding failed, falling back to recency ordering: %v", err)
		}
		return rank.ByRecency(tasks, s.config.TopK), rank.ByRecency(memories, s.config.TopK)
	}

	rankedTasks, err := rank.Rank(queryVec, tasks, s.config.TopK, s.config.MinScore)
	if err != nil {
		rankedTasks = rank.ByRecency(tasks, s.config.TopK)
	}
	rankedMemories, err := rank.Rank(queryVec, memories, s.config.TopK, s.config.MinScore)
	if err != nil {
		rankedMemories = rank.ByRecency(memories, s.config.TopK)
	}

	log.Printf("[RECALL] Ranked %d tasks, %d memories for query: %q",
		len(rankedTasks), len(rankedMemories), truncateLog(query, 50))
	return rankedTasks, rankedMemories
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
