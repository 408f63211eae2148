package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/rag"
)

// SearchHandler handles retrieval-only requests: it returns the chunks the
// engine would ground an answer on, without calling the LLM.
type SearchHandler struct {
	orchestrator *rag.Orchestrator
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(orchestrator *rag.Orchestrator) *SearchHandler {
	return &SearchHandler{orchestrator: orchestrator}
}

// SearchRequest represents the HTTP request payload for retrieval queries.
type SearchRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Documents []string `json:"documents,omitempty"`
}

// SearchResult is one retrieved chunk with its provenance.
type SearchResult struct {
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
	Document   string  `json:"document"`
	Section    string  `json:"section,omitempty"`
	Page       int     `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
}

// SearchResponse represents the HTTP response payload for retrieval queries.
type SearchResponse struct {
	Results    []SearchResult       `json:"results"`
	QueryType  string               `json:"query_type"`
	Confidence float32              `json:"confidence"`
	Aggregate  *rag.AggregateResult `json:"aggregate,omitempty"`
}

const defaultSearchTopK = 5

// ServeHTTP handles POST /api/v1/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		logger.WarnContext(ctx, "empty query in request")
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultSearchTopK
	}

	retrieval, err := h.orchestrator.Retrieve(ctx, req.Query, req.TopK, req.Documents)
	if err != nil {
		writeServiceError(w, r, err, "Failed to run search")
		return
	}

	results := make([]SearchResult, len(retrieval.Chunks))
	for i, chunk := range retrieval.Chunks {
		results[i] = SearchResult{
			Text:       chunk.Text,
			Score:      chunk.Score,
			Document:   chunk.Meta.SourceDoc,
			Section:    chunk.Meta.Section,
			Page:       chunk.Meta.Page,
			ChunkIndex: chunk.Meta.ChunkIndex,
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results:    results,
		QueryType:  string(retrieval.QueryType),
		Confidence: retrieval.Confidence,
		Aggregate:  retrieval.Aggregate,
	})
}
