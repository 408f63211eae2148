package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/indexer"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

// DocumentsHandler manages the document lifecycle: ingest, list, delete.
type DocumentsHandler struct {
	pipeline  *indexer.Pipeline
	documents storage.DocumentStore
	index     vectorstore.Index
}

// NewDocumentsHandler creates a new DocumentsHandler. documents may be nil
// when no catalog is configured; listing then falls back to index stats only.
func NewDocumentsHandler(pipeline *indexer.Pipeline, documents storage.DocumentStore, index vectorstore.Index) *DocumentsHandler {
	return &DocumentsHandler{
		pipeline:  pipeline,
		documents: documents,
		index:     index,
	}
}

// IngestRequest represents the HTTP request payload for document ingestion.
type IngestRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ListResponse represents the HTTP response for the document listing.
type ListResponse struct {
	Documents []storage.Document     `json:"documents"`
	Index     vectorstore.IndexStats `json:"index"`
}

// DeleteResponse reports how many chunks a deletion removed.
type DeleteResponse struct {
	Document      string `json:"document"`
	ChunksRemoved int    `json:"chunks_removed"`
}

// Ingest handles POST /api/v1/documents. Files named *.md or *.markdown are
// flattened as markdown before chunking; everything else is treated as
// extracted plain text.
func (h *DocumentsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		logger.WarnContext(ctx, "empty document name in request")
		writeError(w, http.StatusBadRequest, "Document name is required")
		return
	}

	var (
		result indexer.IngestResult
		err    error
	)
	switch strings.ToLower(filepath.Ext(req.Name)) {
	case ".md", ".markdown":
		result, err = h.pipeline.IngestMarkdown(ctx, req.Name, []byte(req.Content))
	default:
		result, err = h.pipeline.IngestText(ctx, req.Name, req.Content)
	}
	if err != nil {
		writeServiceError(w, r, err, "Failed to ingest document")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /api/v1/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.index.Stats(ctx)
	if err != nil {
		writeServiceError(w, r, err, "Failed to read index stats")
		return
	}

	docs := []storage.Document{}
	if h.documents != nil {
		docs, err = h.documents.ListAll(ctx)
		if err != nil {
			writeServiceError(w, r, err, "Failed to list documents")
			return
		}
		if docs == nil {
			docs = []storage.Document{}
		}
	}

	writeJSON(w, http.StatusOK, ListResponse{Documents: docs, Index: stats})
}

// Delete handles DELETE /api/v1/documents/{name}.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	name := chi.URLParam(r, "name")
	if name == "" {
		logger.WarnContext(ctx, "empty document name in delete request")
		writeError(w, http.StatusBadRequest, "Document name is required")
		return
	}

	removed, err := h.pipeline.Delete(ctx, name)
	if err != nil {
		writeServiceError(w, r, err, "Failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Document: name, ChunksRemoved: removed})
}
