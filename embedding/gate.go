package embedding

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Gate wraps a Provider with the loading contract: Load is idempotent,
// and a failed load moves the gate into a degraded state where Embed
// returns ErrUnavailable instead of touching the provider.
//
// Gate also applies the Config limits (input clipping, call timeout)
// so individual providers do not have to.
type Gate struct {
	provider Provider
	config   *Config

	loadOnce sync.Once
	loadErr  error
	degraded atomic.Bool
}

// NewGate creates a gate around provider. A nil config uses DefaultConfig.
func NewGate(provider Provider, config *Config) *Gate {
	if config == nil {
		config = DefaultConfig
	}
	return &Gate{
		provider: provider,
		config:   config,
	}
}

// Load initializes the underlying provider exactly once. Repeat calls
// return the first outcome. A load failure is remembered: the gate
// degrades rather than retrying.
func (g *Gate) Load(ctx context.Context) error {
	g.loadOnce.Do(func() {
		loader, ok := g.provider.(Loader)
		if !ok {
			return // provider needs no initialization
		}

		loadCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()

		if err := loader.Load(loadCtx); err != nil {
			g.loadErr = fmt.Errorf("load provider: %w", err)
			g.degraded.Store(true)
			log.Printf("[EMBED] Provider load failed, entering degraded state: %v", err)
		}
	})
	return g.loadErr
}

// Embed clips the input to the character budget and embeds it.
// In the degraded state it returns ErrUnavailable without calling the
// provider.
func (g *Gate) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.degraded.Load() {
		return nil, ErrUnavailable
	}

	text = Clip(text, g.config.MaxInputChars)

	embedCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	vec, err := g.provider.Embed(embedCtx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

// Dimensions returns the underlying provider's vector size.
func (g *Gate) Dimensions() int {
	return g.provider.Dimensions()
}

// Degraded reports whether the gate has entered its degraded state.
func (g *Gate) Degraded() bool {
	return g.degraded.Load()
}
