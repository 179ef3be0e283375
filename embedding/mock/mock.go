package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder is a deterministic offline embedder for testing.
// It hashes each token into a fixed-size bucket vector (the hashing
// trick), so texts that share words produce vectors with real cosine
// overlap. No semantic understanding, but similarity behaves the way
// ranking tests need it to.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with 256 dimensions.
func New() *Embedder {
	return &Embedder{dimensions: 256}
}

// Embed creates a bag-of-words embedding from text. Deterministic:
// the same text always yields the same vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if word == "" {
			continue
		}

		h := fnv.New64a()
		h.Write([]byte(word))
		hash := h.Sum64()

		idx := int(hash % uint64(e.dimensions))
		if hash&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	return normalize(vec), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// normalize converts the vector to unit length. Zero vectors (empty
// input) are returned unchanged; cosine handles them as score 0.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}

	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
