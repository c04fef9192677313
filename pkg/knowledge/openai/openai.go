package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = openai.EmbeddingModelTextEmbedding3Small

// Embedder implements knowledge.Embedder using OpenAI.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewEmbedder creates a new OpenAI Embedder.
func NewEmbedder(opts ...option.RequestOption) *Embedder {
	client := openai.NewClient(opts...)
	return &Embedder{
		client: &client,
		model:  DefaultModel,
	}
}

// SetModel sets the embedding model. It must match the model the knowledge base was built with.
func (e *Embedder) SetModel(model string) {
	if model != "" {
		e.model = model
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

// Embed generates embeddings for the given texts.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: e.model,
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		embeddings[data.Index] = vec
	}

	return embeddings, nil
}
