package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEncoder is an Encoder backed by the hosted OpenAI embeddings API.
type OpenAIEncoder struct {
	client    openai.Client
	model     string
	dimension int
}

var _ Encoder = (*OpenAIEncoder)(nil)

// NewOpenAIEncoder creates an encoder for the given OpenAI embedding model.
func NewOpenAIEncoder(apiKey, model string, dimension int) (*OpenAIEncoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &OpenAIEncoder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		dimension: dimension,
	}, nil
}

// Dimension returns the configured vector width.
func (e *OpenAIEncoder) Dimension() int { return e.dimension }

// Mode returns the embedding model identifier.
func (e *OpenAIEncoder) Mode() string { return e.model }

// EmbedTexts generates embeddings for the given texts in one batch request.
func (e *OpenAIEncoder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	result := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), e.dimension)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}
