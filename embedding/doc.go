// Package embedding converts text to fixed-dimension vectors for
// similarity comparison.
//
// Architecture:
//   - Provider: text-to-vector conversion (mock for tests, ollama/openai
//     for API-backed models, onnx for a local model behind a build tag)
//   - Gate: idempotent loading, input clipping, call timeouts, and the
//     degraded state in which Embed returns ErrUnavailable
//   - CachedProvider: ristretto-backed memoization of embeddings
//
// A degraded or failed embedding never aborts a caller: downstream
// components fall back to recency ordering (see rank.ByRecency).
package embedding
