package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/rag"
)

// AskHandler handles HTTP requests for RAG queries.
type AskHandler struct {
	engine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine rag.Engine) *AskHandler {
	return &AskHandler{engine: engine}
}

// AskRequest represents the HTTP request payload for RAG queries.
// This mirrors the rag.AskRequest but is defined here for HTTP layer separation.
type AskRequest struct {
	Question  string   `json:"question"`
	TopK      int      `json:"top_k,omitempty"`
	Documents []string `json:"documents,omitempty"`
}

// AskResponse represents the HTTP response payload for RAG queries.
type AskResponse struct {
	Answer     string               `json:"answer"`
	References []ReferenceResponse  `json:"references"`
	QueryType  string               `json:"query_type"`
	Confidence float32              `json:"confidence"`
	Aggregate  *rag.AggregateResult `json:"aggregate,omitempty"`
}

// ReferenceResponse represents a reference in the HTTP response.
type ReferenceResponse struct {
	Document   string  `json:"document"`
	Section    string  `json:"section,omitempty"`
	Page       int     `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// ServeHTTP handles POST /api/v1/ask.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if req.TopK < 0 {
		req.TopK = 0
	}

	ragResp, err := h.engine.Ask(ctx, rag.AskRequest{
		Question:  req.Question,
		TopK:      req.TopK,
		Documents: req.Documents,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to process query")
		return
	}

	references := make([]ReferenceResponse, len(ragResp.References))
	for i, ref := range ragResp.References {
		references[i] = ReferenceResponse{
			Document:   ref.Document,
			Section:    ref.Section,
			Page:       ref.Page,
			ChunkIndex: ref.ChunkIndex,
			Score:      ref.Score,
		}
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Answer:     ragResp.Answer,
		References: references,
		QueryType:  ragResp.QueryType,
		Confidence: ragResp.Confidence,
		Aggregate:  ragResp.Aggregate,
	})
}
