package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docuchat-ai/internal/rag"
	"docuchat-ai/internal/vectorstore"
)

func chunkResult(doc, text string, score float32, chunkIndex int) vectorstore.Result {
	return vectorstore.Result{
		Text:  text,
		Score: score,
		Meta:  vectorstore.Metadata{SourceDoc: doc, ChunkIndex: chunkIndex},
	}
}

func newSearchHandler(t *testing.T, idx vectorstore.Index) *SearchHandler {
	t.Helper()
	orchestrator, err := rag.NewOrchestrator(idx, nil, nil, 0.4)
	if err != nil {
		t.Fatalf("NewOrchestrator() error: %v", err)
	}
	return NewSearchHandler(orchestrator)
}

func TestSearchHandler_Success(t *testing.T) {
	idx := newStubIndex(
		chunkResult("handbook.txt", "Vacation policy grants twenty days.", 0.85, 0),
		chunkResult("handbook.txt", "Sick leave requires a doctor's note.", 0.62, 1),
		chunkResult("handbook.txt", "Remote work is allowed twice a week.", 0.55, 2),
	)
	handler := newSearchHandler(t, idx)

	rec := postJSON(t, handler, "/api/v1/search", SearchRequest{Query: "what is the vacation policy", TopK: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Document != "handbook.txt" || resp.Results[0].Text == "" {
		t.Errorf("first result = %+v", resp.Results[0])
	}
	if resp.QueryType != "factual" {
		t.Errorf("QueryType = %q, want factual", resp.QueryType)
	}
	if resp.Confidence <= 0 {
		t.Errorf("Confidence = %f, want positive", resp.Confidence)
	}
}

func TestSearchHandler_EmptyQuery(t *testing.T) {
	handler := newSearchHandler(t, newStubIndex())

	rec := postJSON(t, handler, "/api/v1/search", SearchRequest{Query: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchHandler_EmptyIndex(t *testing.T) {
	handler := newSearchHandler(t, newStubIndex())

	rec := postJSON(t, handler, "/api/v1/search", SearchRequest{Query: "anything at all", TopK: 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("got %d results, want 0", len(resp.Results))
	}
}

func TestSearchHandler_MethodNotAllowed(t *testing.T) {
	handler := newSearchHandler(t, newStubIndex())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
