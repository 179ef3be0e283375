package rank

import (
	"errors"
	"math"
	"sort"

	"github.com/becomeliminal/mnemo-go-sdk/core"
)

// ErrNoQuery is returned by Rank when the query vector is nil or empty.
// Callers without a query embedding fall back to ByRecency instead of
// calling Rank.
var ErrNoQuery = errors.New("missing query vector")

// Match is one ranked candidate. Ephemeral: produced per query, never
// persisted.
type Match struct {
	Item  core.EmbeddedItem
	Score float64 // cosine similarity, [-1, 1]
	Rank  int     // 1-based position in the result
}

// Cosine computes cosine similarity between two vectors, range [-1, 1].
// Zero-magnitude vectors and length mismatches score 0 rather than
// erroring; dimension agreement between query and candidates is checked
// by Rank before scoring.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Rank scores candidates against the query vector and returns at most k
// matches with score >= minScore, sorted descending. Ties keep the
// candidates' insertion order. Candidates whose vectors do not share
// the query's dimension are rejected before scoring. A single linear
// scan: O(n) scoring plus the sort.
//
// An empty candidate set returns an empty result. A nil query is a
// caller bug (fall back to ByRecency instead) and returns ErrNoQuery.
func Rank(query []float32, candidates []core.EmbeddedItem, k int, minScore float64) ([]Match, error) {
	if len(query) == 0 {
		return nil, ErrNoQuery
	}
	if len(candidates) == 0 || k <= 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, len(candidates))
	for _, item := range candidates {
		if len(item.Vector) != len(query) {
			continue // wrong dimension, rejected before similarity
		}
		score := Cosine(query, item.Vector)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{Item: item, Score: score})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches, nil
}

// ByRecency orders candidates newest-first and returns at most k as
// zero-score matches. This is the fallback ordering when no query
// embedding is available (degraded provider).
func ByRecency(candidates []core.EmbeddedItem, k int) []Match {
	if len(candidates) == 0 || k <= 0 {
		return []Match{}
	}

	ordered := make([]core.EmbeddedItem, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].GeneratedAt.After(ordered[j].GeneratedAt)
	})

	if len(ordered) > k {
		ordered = ordered[:k]
	}

	matches := make([]Match, len(ordered))
	for i, item := range ordered {
		matches[i] = Match{Item: item, Rank: i + 1}
	}
	return matches
}
