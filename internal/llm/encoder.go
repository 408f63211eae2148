package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_encoder.go -package=mocks docuchat-ai/internal/llm Encoder

import "context"

// Encoder turns texts into fixed-width embedding vectors. The vector index
// is constructed with a shared Encoder rather than resolving one from a
// global cache, so tests can substitute a fake cleanly.
type Encoder interface {
	// EmbedTexts generates one embedding per input text, in order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the encoder's fixed output width.
	Dimension() int

	// Mode identifies the encoder (model name) for chunk metadata.
	Mode() string
}
