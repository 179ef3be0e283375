package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client embeds text via the OpenAI embeddings API.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// Config configures the OpenAI embedder.
type Config struct {
	// BaseURL overrides the API endpoint (for proxies or compatible
	// servers). Empty uses the OpenAI default.
	BaseURL string

	// Model is the embedding model. Default: text-embedding-3-small.
	Model openai.EmbeddingModel

	// Dimensions is the model's vector size. Default: 1536
	// (text-embedding-3-small).
	Dimensions int
}

// New creates an OpenAI embedding client.
func New(apiKey string, cfg Config) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.SmallEmbedding3
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}

	return &Client{
		client:     openai.NewClientWithConfig(config),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates an embedding for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("openai returned no embeddings")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != c.dimensions {
		return nil, fmt.Errorf("dimension mismatch: got %d, expected %d",
			len(vec), c.dimensions)
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (c *Client) Dimensions() int {
	return c.dimensions
}
