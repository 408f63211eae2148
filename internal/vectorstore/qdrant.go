package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docuchat-ai/internal/chunker"
	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/service"
)

const scrollPageSize = 256

// QdrantIndex is an Index backed by a Qdrant collection. Chunk text and
// metadata travel in the point payload under the keys read back by
// payloadToResult.
type QdrantIndex struct {
	client     *qdrant.Client
	encoder    llm.Encoder
	collection string
}

var _ Index = (*QdrantIndex)(nil)

// NewQdrantIndex connects to Qdrant at urlStr ("http://host:port"; the gRPC
// port is derived as HTTP port + 1) and ensures the collection exists with
// the encoder's dimension.
func NewQdrantIndex(ctx context.Context, encoder llm.Encoder, urlStr, collection string) (*QdrantIndex, error) {
	if encoder == nil {
		return nil, &service.ValidationError{Field: "encoder", Message: "encoder is required"}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		encoder:    encoder,
		collection: collection,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	logger.InfoContext(ctx, "creating collection", "collection", q.collection, "vector_size", q.encoder.Dimension())
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.encoder.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func documentFilter(document string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("source_doc", document),
		},
	}
}

// Add replaces document's points: existing points matching the document are
// deleted, then the new chunks are embedded once and upserted.
func (q *QdrantIndex) Add(ctx context.Context, document string, chunks []string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if document == "" {
		return 0, service.WrapError(service.ErrInvalidInput, "document name is empty")
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(document)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete existing points: %w", err)
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings, err := q.encoder.EmbedTexts(ctx, chunks)
	if err != nil {
		return 0, service.WrapError(err, "failed to embed chunks")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	mode := q.encoder.Mode()

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, vec := range embeddings {
		if len(vec) != q.encoder.Dimension() {
			return 0, service.WrapError(service.ErrDimensionMismatch,
				fmt.Sprintf("chunk %d has dimension %d, index expects %d", i, len(vec), q.encoder.Dimension()))
		}

		payload := map[string]any{
			"source_doc":     document,
			"chunk_index":    int64(i),
			"chunk_length":   int64(len(chunks[i])),
			"text":           chunks[i],
			"preview":        chunker.Preview(chunks[i], previewLen),
			"timestamp":      now,
			"embedding_mode": mode,
		}
		if page, ok := chunker.PageNumber(chunks[i]); ok {
			payload["page"] = int64(page)
		}
		if section, ok := chunker.SectionHeading(chunks[i]); ok {
			payload["section"] = section
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", q.collection, "count", len(points), "error", err)
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", q.collection, "document", document, "count", len(points))
	return len(points), nil
}

// Search embeds the query and ranks points by cosine similarity, rescaled
// to [0, 1] to match the local backend.
func (q *QdrantIndex) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, &service.ValidationError{Field: "topK", Message: "must be positive"}
	}
	if query == "" {
		return nil, nil
	}

	embeddings, err := q.encoder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, service.WrapError(err, "failed to embed query")
	}

	limit := uint64(topK)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(embeddings[0]...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]Result, 0, len(scored))
	for _, point := range scored {
		text, meta := payloadToResult(point.Payload)
		score := (point.Score + 1) / 2
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		results = append(results, Result{Text: text, Score: score, Meta: meta})
	}
	return results, nil
}

// DocumentChunks scrolls every point for document and returns them in
// chunk order.
func (q *QdrantIndex) DocumentChunks(ctx context.Context, document string) ([]Result, error) {
	var results []Result
	var offset *qdrant.PointId

	for {
		limit := uint32(scrollPageSize)
		points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.collection,
			Filter:         documentFilter(document),
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}
		if len(points) == 0 {
			break
		}

		for _, point := range points {
			text, meta := payloadToResult(point.Payload)
			results = append(results, Result{Text: text, Score: 1.0, Meta: meta})
		}
		if len(points) < scrollPageSize {
			break
		}
		offset = points[len(points)-1].Id
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Meta.ChunkIndex < results[j].Meta.ChunkIndex
	})
	return results, nil
}

// DeleteDocument removes all points for document and returns how many
// existed beforehand.
func (q *QdrantIndex) DeleteDocument(ctx context.Context, document string) (int, error) {
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         documentFilter(document),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	_, err = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(document)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete points: %w", err)
	}
	return int(count), nil
}

// Clear removes every point from the collection.
func (q *QdrantIndex) Clear(ctx context.Context) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
	})
	if err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

// Stats counts points and scrolls payloads to list the distinct documents.
func (q *QdrantIndex) Stats(ctx context.Context) (IndexStats, error) {
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
	})
	if err != nil {
		return IndexStats{}, fmt.Errorf("failed to count points: %w", err)
	}

	seen := make(map[string]bool)
	var docs []string
	var offset *qdrant.PointId

	for {
		limit := uint32(scrollPageSize)
		points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return IndexStats{}, fmt.Errorf("failed to scroll points: %w", err)
		}
		if len(points) == 0 {
			break
		}

		for _, point := range points {
			_, meta := payloadToResult(point.Payload)
			if meta.SourceDoc != "" && !seen[meta.SourceDoc] {
				seen[meta.SourceDoc] = true
				docs = append(docs, meta.SourceDoc)
			}
		}
		if len(points) < scrollPageSize {
			break
		}
		offset = points[len(points)-1].Id
	}

	return IndexStats{
		Chunks:    int(count),
		Documents: docs,
		Dimension: q.encoder.Dimension(),
	}, nil
}

// payloadToResult extracts the chunk text and metadata from a point payload.
func payloadToResult(payload map[string]*qdrant.Value) (string, Metadata) {
	var text string
	var meta Metadata

	for key, value := range payload {
		if value == nil {
			continue
		}
		switch key {
		case "text":
			text = value.GetStringValue()
		case "source_doc":
			meta.SourceDoc = value.GetStringValue()
		case "chunk_index":
			meta.ChunkIndex = int(value.GetIntegerValue())
		case "chunk_length":
			meta.ChunkLength = int(value.GetIntegerValue())
		case "page":
			meta.Page = int(value.GetIntegerValue())
		case "section":
			meta.Section = value.GetStringValue()
		case "preview":
			meta.Preview = value.GetStringValue()
		case "timestamp":
			meta.Timestamp = value.GetStringValue()
		case "embedding_mode":
			meta.EmbeddingMode = value.GetStringValue()
		}
	}
	return text, meta
}
