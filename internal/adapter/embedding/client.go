package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// Dimension every produced vector has, primary or fallback. The index is
// provisioned for this dimension; a provider returning anything else is
// treated as a malformed payload.
const Dimension = 384

type Client struct {
	api   *openai.Client
	model string
}

func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// Embed returns a vector for text. The remote endpoint is the primary path;
// any failure there (transport, non-2xx, malformed payload) substitutes the
// deterministic local fallback, so Embed itself never fails and ingestion
// stays available when the provider is down.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.remote(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "primary embedding failed, using fallback", "error", err)
		return Fallback(text), nil
	}
	return vec, nil
}

func (c *Client) remote(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}
	vec := resp.Data[0].Embedding
	if len(vec) != Dimension {
		return nil, fmt.Errorf("unexpected embedding dimension %d", len(vec))
	}
	return vec, nil
}
