package knowledge

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingClient turns text into vectors. Kept as a small interface so tests
// can substitute a deterministic fake.
type EmbeddingClient interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// OpenAIEmbeddingClient embeds text through the OpenAI embeddings API.
type OpenAIEmbeddingClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbeddingClient wraps an OpenAI client for the given model.
func NewOpenAIEmbeddingClient(client *openai.Client, model string) *OpenAIEmbeddingClient {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbeddingClient{client: client, model: openai.EmbeddingModel(model)}
}

// Embed returns one vector per input, in input order.
func (c *OpenAIEmbeddingClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.model,
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: embedding call failed: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("knowledge: embedding response size mismatch: got %d want %d", len(resp.Data), len(inputs))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}
