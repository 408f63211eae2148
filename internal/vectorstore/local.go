package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"docuchat-ai/internal/chunker"
	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/service"
)

const previewLen = 150

// LocalIndex is a file-backed flat vector index. Embeddings live in a binary
// vector file, chunk texts and metadata in a JSON sidecar, and the whole
// store is held in memory behind a RWMutex.
type LocalIndex struct {
	mu        sync.RWMutex
	encoder   llm.Encoder
	indexPath string
	metaPath  string

	// parallel arrays; chunks[i], meta[i] and vectors[i] describe one chunk
	chunks  []string
	meta    []Metadata
	vectors [][]float32
}

var _ Index = (*LocalIndex)(nil)

// NewLocalIndex opens or creates a local index persisted at indexPath (vectors)
// and metaPath (chunks and metadata). A stored file whose shape disagrees with
// the encoder's dimension is discarded rather than trusted.
func NewLocalIndex(ctx context.Context, encoder llm.Encoder, indexPath, metaPath string) (*LocalIndex, error) {
	if encoder == nil {
		return nil, &service.ValidationError{Field: "encoder", Message: "encoder is required"}
	}
	if encoder.Dimension() <= 0 {
		return nil, &service.ValidationError{Field: "dimension", Message: "embedding dimension must be positive"}
	}

	idx := &LocalIndex{
		encoder:   encoder,
		indexPath: indexPath,
		metaPath:  metaPath,
	}
	idx.load(ctx)
	return idx, nil
}

// load restores persisted state. Any inconsistency between the vector file
// and the metadata file empties the store; a fresh ingest rebuilds it.
func (idx *LocalIndex) load(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)

	vectors, dim, err := readVectors(idx.indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("discarding unreadable vector file", "path", idx.indexPath, "error", err)
		}
		return
	}

	chunks, meta, err := readMeta(idx.metaPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("discarding unreadable metadata file", "path", idx.metaPath, "error", err)
		}
		return
	}

	if dim != idx.encoder.Dimension() {
		logger.Warn("discarding persisted index: dimension mismatch",
			"stored", dim, "expected", idx.encoder.Dimension())
		return
	}
	if len(vectors) != len(chunks) || len(chunks) != len(meta) {
		logger.Warn("discarding persisted index: count mismatch",
			"vectors", len(vectors), "chunks", len(chunks), "metadata", len(meta))
		return
	}

	idx.vectors = vectors
	idx.chunks = chunks
	idx.meta = meta
	logger.Info("loaded local index", "chunks", len(chunks), "dimension", dim)
}

// Add replaces document's chunks. Embedding happens exactly once per chunk;
// previously stored documents keep their stored vectors.
func (idx *LocalIndex) Add(ctx context.Context, document string, chunks []string) (int, error) {
	if document == "" {
		return 0, service.WrapError(service.ErrInvalidInput, "document name is empty")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.deleteLocked(document)

	if len(chunks) == 0 {
		if err := idx.persistLocked(); err != nil {
			return 0, err
		}
		return 0, nil
	}

	embeddings, err := idx.encoder.EmbedTexts(ctx, chunks)
	if err != nil {
		return 0, service.WrapError(err, "failed to embed chunks")
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	dim := idx.encoder.Dimension()
	now := time.Now().UTC().Format(time.RFC3339)
	mode := idx.encoder.Mode()

	for i, vec := range embeddings {
		if len(vec) != dim {
			return 0, service.WrapError(service.ErrDimensionMismatch,
				fmt.Sprintf("chunk %d has dimension %d, index expects %d", i, len(vec), dim))
		}

		meta := Metadata{
			SourceDoc:     document,
			ChunkIndex:    i,
			ChunkLength:   len(chunks[i]),
			Preview:       chunker.Preview(chunks[i], previewLen),
			Timestamp:     now,
			EmbeddingMode: mode,
		}
		if page, ok := chunker.PageNumber(chunks[i]); ok {
			meta.Page = page
		}
		if section, ok := chunker.SectionHeading(chunks[i]); ok {
			meta.Section = section
		}

		idx.chunks = append(idx.chunks, chunks[i])
		idx.meta = append(idx.meta, meta)
		idx.vectors = append(idx.vectors, normalize(vec))
	}

	if err := idx.persistLocked(); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Search ranks stored chunks by cosine similarity to query, rescaled to [0, 1].
func (idx *LocalIndex) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, &service.ValidationError{Field: "topK", Message: "must be positive"}
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	idx.mu.RLock()
	empty := len(idx.vectors) == 0
	idx.mu.RUnlock()
	if empty {
		return nil, nil
	}

	embeddings, err := idx.encoder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, service.WrapError(err, "failed to embed query")
	}
	queryVec := normalize(embeddings[0])

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(queryVec) != idx.encoder.Dimension() {
		return nil, service.WrapError(service.ErrDimensionMismatch,
			fmt.Sprintf("query embedding has dimension %d", len(queryVec)))
	}

	scored := make([]Result, 0, len(idx.vectors))
	for i, vec := range idx.vectors {
		scored = append(scored, Result{
			Text:  idx.chunks[i],
			Score: similarity(queryVec, vec),
			Meta:  idx.metaAt(i),
		})
	}

	sortResultsByScore(scored)
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// DocumentChunks returns everything stored for document, in chunk order.
func (idx *LocalIndex) DocumentChunks(ctx context.Context, document string) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []Result
	for i := range idx.chunks {
		if idx.metaAt(i).SourceDoc == document {
			results = append(results, Result{
				Text:  idx.chunks[i],
				Score: 1.0,
				Meta:  idx.metaAt(i),
			})
		}
	}
	return results, nil
}

// DeleteDocument removes all chunks for document and renumbers nothing else;
// remaining documents keep their stored embeddings.
func (idx *LocalIndex) DeleteDocument(ctx context.Context, document string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := idx.deleteLocked(document)
	if removed == 0 {
		return 0, nil
	}
	if err := idx.persistLocked(); err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes everything and persists the empty state.
func (idx *LocalIndex) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.chunks = nil
	idx.meta = nil
	idx.vectors = nil
	return idx.persistLocked()
}

// Stats reports counts and the distinct documents currently stored.
func (idx *LocalIndex) Stats(ctx context.Context) (IndexStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]bool)
	var docs []string
	for i := range idx.chunks {
		doc := idx.metaAt(i).SourceDoc
		if !seen[doc] {
			seen[doc] = true
			docs = append(docs, doc)
		}
	}
	return IndexStats{
		Chunks:    len(idx.chunks),
		Documents: docs,
		Dimension: idx.encoder.Dimension(),
	}, nil
}

// deleteLocked removes document's entries and renumbers the surviving chunks
// per document. Caller holds the write lock.
func (idx *LocalIndex) deleteLocked(document string) int {
	removed := 0
	keptChunks := idx.chunks[:0]
	keptMeta := idx.meta[:0]
	keptVectors := idx.vectors[:0]
	counts := make(map[string]int)

	for i := range idx.chunks {
		m := idx.metaAt(i)
		if m.SourceDoc == document {
			removed++
			continue
		}
		m.ChunkIndex = counts[m.SourceDoc]
		counts[m.SourceDoc]++
		keptChunks = append(keptChunks, idx.chunks[i])
		keptMeta = append(keptMeta, m)
		keptVectors = append(keptVectors, idx.vectors[i])
	}

	idx.chunks = keptChunks
	idx.meta = keptMeta
	idx.vectors = keptVectors
	return removed
}

// metaAt returns metadata for position i, substituting a placeholder if the
// metadata array is somehow shorter than the chunk array.
func (idx *LocalIndex) metaAt(i int) Metadata {
	if i < len(idx.meta) {
		return idx.meta[i]
	}
	return Metadata{SourceDoc: "unknown", ChunkIndex: i}
}

func (idx *LocalIndex) persistLocked() error {
	if err := writeVectors(idx.indexPath, idx.vectors, idx.encoder.Dimension()); err != nil {
		return service.WrapError(err, "failed to persist vectors")
	}
	if err := writeMeta(idx.metaPath, idx.chunks, idx.meta); err != nil {
		return service.WrapError(err, "failed to persist metadata")
	}
	return nil
}

// Vector file layout: uint32 dimension, uint32 count, then count*dimension
// little-endian float32 values.
func writeVectors(path string, vectors [][]float32, dim int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	header := []uint32{uint32(dim), uint32(len(vectors))}
	if err := binary.Write(f, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, vec := range vectors {
		if err := binary.Write(f, binary.LittleEndian, vec); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	var header [2]uint32
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	dim, count := int(header[0]), int(header[1])
	if dim <= 0 || dim > 1<<16 || count < 0 || count > 1<<24 {
		return nil, 0, fmt.Errorf("implausible header: dim=%d count=%d", dim, count)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		if err := binary.Read(f, binary.LittleEndian, &vec); err != nil {
			return nil, 0, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, dim, nil
}

type metaFile struct {
	Chunks   []string   `json:"chunks"`
	Metadata []Metadata `json:"metadata"`
}

func writeMeta(path string, chunks []string, meta []Metadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if chunks == nil {
		chunks = []string{}
	}
	if meta == nil {
		meta = []Metadata{}
	}
	data, err := json.Marshal(metaFile{Chunks: chunks, Metadata: meta})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readMeta(path string) ([]string, []Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var mf metaFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return mf.Chunks, mf.Metadata, nil
}

// normalize returns v scaled to unit length. Zero vectors pass through.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// similarity maps the cosine of two unit vectors into [0, 1].
func similarity(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	score := (dot + 1) / 2
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return float32(score)
}

// sortResultsByScore orders results best-first; equal scores keep storage order.
func sortResultsByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
