// Package openai implements embedclient.Client against the OpenAI
// embeddings API, grounded in ob-labs-powermem-go's embedder/openai client.
package openai

import (
	"context"
	"fmt"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/patternforge/hebbian/internal/embedclient"
)

type Client struct {
	client *sdk.Client
	model  sdk.EmbeddingModel
	dim    int
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

func New(cfg Config) *Client {
	conf := sdk.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	model := sdk.SmallEmbedding3
	if cfg.Model != "" {
		model = sdk.EmbeddingModel(cfg.Model)
	}

	dim := cfg.Dimensions
	if dim == 0 {
		dim = 1536
	}

	return &Client{
		client: sdk.NewClientWithConfig(conf),
		model:  model,
		dim:    dim,
	}
}

func (c *Client) Dimension() int { return c.dim }

// Embed batches texts in groups of embedclient.MaxBatch and truncates each
// to embedclient.MaxChars, matching the generic http backend's contract.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += embedclient.MaxBatch {
		end := start + embedclient.MaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := make([]string, end-start)
		for i, t := range texts[start:end] {
			batch[i] = embedclient.Truncate(t)
		}

		resp, err := c.client.CreateEmbeddings(ctx, sdk.EmbeddingRequest{
			Input: batch,
			Model: c.model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(resp.Data), len(batch))
		}
		for _, d := range resp.Data {
			out = append(out, d.Embedding)
		}
	}

	return out, nil
}
