package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// CachedProvider memoizes embeddings by input text. Because Embed is
// deterministic for a fixed model version, a cache hit is always valid
// for the lifetime of the provider.
type CachedProvider struct {
	inner Provider
	cache *ristretto.Cache
}

// NewCached wraps inner with a ristretto cache bounded to maxBytes of
// vector data.
func NewCached(inner Provider, maxBytes int64) (*CachedProvider, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxBytes / 64, // ~10x expected entries at 384-dim vectors
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &CachedProvider{
		inner: inner,
		cache: cache,
	}, nil
}

// Embed returns the cached vector for text, embedding on miss.
// Errors are never cached: a failed embed is retried on the next call.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// Dimensions returns the inner provider's vector size.
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases the cache.
func (c *CachedProvider) Close() {
	c.cache.Close()
}
