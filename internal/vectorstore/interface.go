package vectorstore

import "context"

//go:generate mockgen -destination=mocks/mock_index.go -package=mocks docuchat-ai/internal/vectorstore Index

// Metadata describes a stored chunk. It travels with the chunk through
// persistence and search results.
type Metadata struct {
	SourceDoc     string `json:"source_doc"`
	ChunkIndex    int    `json:"chunk_index"`
	ChunkLength   int    `json:"chunk_length"`
	Page          int    `json:"page,omitempty"`
	Section       string `json:"section,omitempty"`
	Preview       string `json:"preview"`
	Timestamp     string `json:"timestamp"`
	EmbeddingMode string `json:"embedding_mode"`
}

// Result is a single chunk returned from a search, scored in [0, 1].
type Result struct {
	Text  string
	Score float32
	Meta  Metadata
}

// IndexStats summarizes the contents of an index.
type IndexStats struct {
	Chunks    int      `json:"chunks"`
	Documents []string `json:"documents"`
	Dimension int      `json:"dimension"`
}

// Index stores embedded chunks grouped by source document and answers
// similarity queries against them.
type Index interface {
	// Add replaces any chunks previously stored for document with the given
	// chunks, embedding each exactly once. It returns the number stored.
	Add(ctx context.Context, document string, chunks []string) (int, error)

	// Search returns up to topK results ranked by similarity to query.
	Search(ctx context.Context, query string, topK int) ([]Result, error)

	// DocumentChunks returns every chunk stored for document, in chunk order.
	DocumentChunks(ctx context.Context, document string) ([]Result, error)

	// DeleteDocument removes all chunks for document, returning how many
	// were removed.
	DeleteDocument(ctx context.Context, document string) (int, error)

	// Clear removes everything from the index.
	Clear(ctx context.Context) error

	// Stats reports chunk and document counts.
	Stats(ctx context.Context) (IndexStats, error)
}
