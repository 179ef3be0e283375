package embedding

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"
)

// ErrUnavailable is returned by Embed when the provider failed to load
// and entered its degraded state. Callers must treat a missing embedding
// as a signal to fall back to a non-similarity ordering (recency), never
// as a fatal condition.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider converts text to fixed-dimension embedding vectors.
// Implementations: mock.Embedder (testing/offline), ollama.Client,
// openai.Client, onnx.Embedder (build-tagged local model).
//
// Embed must be deterministic for a fixed model version: the same text
// always yields the same vector.
type Provider interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Loader is implemented by providers that need explicit initialization
// (model files, remote health checks) before Embed can be called.
type Loader interface {
	Load(ctx context.Context) error
}

// Config holds provider-side limits applied by Gate.
type Config struct {
	// MaxInputChars is the character budget per input. Longer inputs are
	// clipped before embedding rather than rejected.
	// Default: 8000.
	MaxInputChars int

	// Timeout bounds every call out to the underlying provider.
	// Default: 10s.
	Timeout time.Duration
}

// DefaultConfig returns the limits used when Config is nil.
var DefaultConfig = &Config{
	MaxInputChars: 8000,
	Timeout:       10 * time.Second,
}

// Clip truncates text to the configured character budget, backing up
// to a rune boundary so the result stays valid UTF-8. A non-positive
// budget disables clipping.
func Clip(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// BatchResult carries the outcome for one entry of a batch embed.
// Entries fail independently; a failed entry has a nil Vector and a
// non-nil Err.
type BatchResult struct {
	Vector []float32
	Err    error
}

// Batch embeds texts in input order. Individual failures do not abort
// the batch; each result slot matches its input slot.
func Batch(ctx context.Context, p Provider, texts []string) []BatchResult {
	results := make([]BatchResult, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			results[i] = BatchResult{Err: err}
			continue
		}
		results[i] = BatchResult{Vector: vec}
	}
	return results
}
