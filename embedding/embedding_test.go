package embedding_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/becomeliminal/mnemo-go-sdk/embedding"
	"github.com/becomeliminal/mnemo-go-sdk/embedding/mock"
)

// flakyProvider fails Embed for texts in its deny set.
type flakyProvider struct {
	deny map[string]bool
}

func (p *flakyProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if p.deny[text] {
		return nil, errors.New("simulated failure")
	}
	return []float32{1, 0}, nil
}

func (p *flakyProvider) Dimensions() int { return 2 }

// brokenLoader always fails initialization.
type brokenLoader struct {
	flakyProvider
	loads int
}

func (p *brokenLoader) Load(_ context.Context) error {
	p.loads++
	return errors.New("model file missing")
}

func TestClip(t *testing.T) {
	if got := embedding.Clip("hello", 10); got != "hello" {
		t.Errorf("short text modified: %q", got)
	}
	if got := embedding.Clip("hello world", 5); got != "hello" {
		t.Errorf("clip: got %q, want %q", got, "hello")
	}
	long := strings.Repeat("x", 100)
	if got := embedding.Clip(long, 0); got != long {
		t.Errorf("non-positive budget should disable clipping, got %d chars", len(got))
	}
}

func TestClip_RuneBoundary(t *testing.T) {
	// "é" is two bytes; a budget of 2 lands mid-rune.
	got := embedding.Clip("héllo", 2)
	if got != "h" {
		t.Errorf("clip mid-rune: got %q, want %q", got, "h")
	}
	if !utf8.ValidString(got) {
		t.Errorf("clipped text is not valid UTF-8: %q", got)
	}

	whole := embedding.Clip("héllo", 3)
	if whole != "hé" {
		t.Errorf("clip on boundary: got %q, want %q", whole, "hé")
	}
}

func TestGate_DegradedAfterFailedLoad(t *testing.T) {
	provider := &brokenLoader{}
	gate := embedding.NewGate(provider, nil)

	if err := gate.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if !gate.Degraded() {
		t.Fatal("gate should be degraded after failed load")
	}

	// Load is idempotent: the provider is not retried.
	if err := gate.Load(context.Background()); err == nil {
		t.Fatal("repeat load should return the remembered error")
	}
	if provider.loads != 1 {
		t.Errorf("provider loaded %d times, want 1", provider.loads)
	}

	if _, err := gate.Embed(context.Background(), "text"); !errors.Is(err, embedding.ErrUnavailable) {
		t.Errorf("degraded embed: got %v, want ErrUnavailable", err)
	}
}

func TestGate_EmbedPassthrough(t *testing.T) {
	gate := embedding.NewGate(&flakyProvider{}, nil)
	if err := gate.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	vec, err := gate.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("got %d dims, want 2", len(vec))
	}
	if gate.Degraded() {
		t.Error("healthy gate reports degraded")
	}
}

func TestBatch_OrderAndPartialFailure(t *testing.T) {
	provider := &flakyProvider{deny: map[string]bool{"bad": true}}
	texts := []string{"first", "bad", "last"}

	results := embedding.Batch(context.Background(), provider, texts)
	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy entries errored: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("failing entry did not carry its error")
	}
	if results[1].Vector != nil {
		t.Error("failed entry should have no vector")
	}
}

func TestCached_ReturnsSameVector(t *testing.T) {
	cached, err := embedding.NewCached(mock.New(), 1<<20)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer cached.Close()

	first, err := cached.Embed(context.Background(), "redis caching layer")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := cached.Embed(context.Background(), "redis caching layer")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("vector lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	provider := &flakyProvider{deny: map[string]bool{"bad": true}}
	cached, err := embedding.NewCached(provider, 1<<20)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer cached.Close()

	if _, err := cached.Embed(context.Background(), "bad"); err == nil {
		t.Fatal("expected error from failing provider")
	}

	// Once the provider recovers, the same text succeeds.
	provider.deny = nil
	if _, err := cached.Embed(context.Background(), "bad"); err != nil {
		t.Fatalf("recovered embed failed: %v", err)
	}
}
