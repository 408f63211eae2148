package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuchat-ai/internal/chunker"
	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/service"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

// IngestResult reports what one ingestion produced.
type IngestResult struct {
	Document string         `json:"document"`
	Chunks   int            `json:"chunks"`
	Stats    *chunker.Stats `json:"stats,omitempty"`
}

// Pipeline runs the ingestion flow: flatten (markdown only) → chunk →
// index → catalog.
type Pipeline struct {
	chunker   *chunker.Chunker
	index     vectorstore.Index
	documents storage.DocumentStore
	flattener *MarkdownFlattener
}

// NewPipeline creates an ingestion pipeline. documents may be nil when no
// catalog is wanted (tests, CLI-only usage).
func NewPipeline(c *chunker.Chunker, index vectorstore.Index, documents storage.DocumentStore) *Pipeline {
	return &Pipeline{
		chunker:   c,
		index:     index,
		documents: documents,
		flattener: NewMarkdownFlattener(),
	}
}

// IngestText chunks and indexes plain extracted text under the given
// document name, replacing any previous version of the document.
func (p *Pipeline) IngestText(ctx context.Context, name, content string) (IngestResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(name) == "" {
		return IngestResult{}, service.WrapError(service.ErrInvalidInput, "document name is empty")
	}

	chunks, stats := p.chunker.ChunkText(content)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	stored, err := p.index.Add(ctx, name, texts)
	if err != nil {
		return IngestResult{}, service.WrapError(err, "failed to index document")
	}

	if p.documents != nil {
		doc := storage.Document{
			ID:          uuid.NewString(),
			Name:        name,
			ChunkCount:  stored,
			ContentHash: contentHash(content),
			IngestedAt:  time.Now().UTC(),
		}
		if err := p.documents.Upsert(ctx, doc); err != nil {
			return IngestResult{}, service.WrapError(err, "failed to catalog document")
		}
	}

	logger.InfoContext(ctx, "document ingested",
		"document", name, "chunks", stored, "blocks", stats.Blocks, "patterns", stats.Patterns)
	return IngestResult{Document: name, Chunks: stored, Stats: stats}, nil
}

// IngestMarkdown flattens markdown to marker-convention text first, then
// ingests it like plain text. Markdown tables become aggregatable rows.
func (p *Pipeline) IngestMarkdown(ctx context.Context, name string, content []byte) (IngestResult, error) {
	return p.IngestText(ctx, name, p.flattener.Flatten(content))
}

// Delete removes a document from the index and the catalog, returning how
// many chunks were removed.
func (p *Pipeline) Delete(ctx context.Context, name string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	removed, err := p.index.DeleteDocument(ctx, name)
	if err != nil {
		return 0, service.WrapError(err, "failed to delete document from index")
	}
	if p.documents != nil {
		if err := p.documents.DeleteByName(ctx, name); err != nil {
			return removed, service.WrapError(err, "failed to delete catalog record")
		}
	}

	logger.InfoContext(ctx, "document deleted", "document", name, "chunks_removed", removed)
	return removed, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
