package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"docuchat-ai/internal/chunker"
	"docuchat-ai/internal/indexer"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

func newDocumentsHandler(t *testing.T, idx vectorstore.Index, store storage.DocumentStore) *DocumentsHandler {
	t.Helper()
	c, err := chunker.New(800, 120, nil)
	if err != nil {
		t.Fatalf("chunker.New() error: %v", err)
	}
	pipeline := indexer.NewPipeline(c, idx, store)
	return NewDocumentsHandler(pipeline, store, idx)
}

func TestDocumentsHandler_IngestText(t *testing.T) {
	idx := newStubIndex()
	store := &stubStore{}
	handler := newDocumentsHandler(t, idx, store)

	rec := postJSON(t, http.HandlerFunc(handler.Ingest), "/api/v1/documents", IngestRequest{
		Name:    "notes.txt",
		Content: "The vacation policy grants twenty days of paid leave per year.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result indexer.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result.Document != "notes.txt" || result.Chunks != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(idx.added["notes.txt"]) != 1 {
		t.Errorf("index received %d chunks", len(idx.added["notes.txt"]))
	}
	if len(store.docs) != 1 {
		t.Errorf("catalog has %d records, want 1", len(store.docs))
	}
}

func TestDocumentsHandler_IngestMarkdownFlattensTables(t *testing.T) {
	idx := newStubIndex()
	handler := newDocumentsHandler(t, idx, nil)

	rec := postJSON(t, http.HandlerFunc(handler.Ingest), "/api/v1/documents", IngestRequest{
		Name:    "sales.md",
		Content: "| City | Sales |\n| --- | --- |\n| New York | 120 |\n",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	joined := strings.Join(idx.added["sales.md"], "\n")
	if !strings.Contains(joined, "Columns: A:City | B:Sales") {
		t.Errorf("markdown table not flattened, indexed text:\n%s", joined)
	}
	if !strings.Contains(joined, "[R2] New York | 120") {
		t.Errorf("row markers missing, indexed text:\n%s", joined)
	}
}

func TestDocumentsHandler_IngestEmptyName(t *testing.T) {
	handler := newDocumentsHandler(t, newStubIndex(), nil)

	rec := postJSON(t, http.HandlerFunc(handler.Ingest), "/api/v1/documents", IngestRequest{Content: "text"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDocumentsHandler_List(t *testing.T) {
	idx := newStubIndex(
		chunkResult("handbook.txt", "chunk one", 0.9, 0),
		chunkResult("handbook.txt", "chunk two", 0.8, 1),
	)
	store := &stubStore{docs: []storage.Document{{ID: "id-1", Name: "handbook.txt", ChunkCount: 2}}}
	handler := newDocumentsHandler(t, idx, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].Name != "handbook.txt" {
		t.Errorf("Documents = %+v", resp.Documents)
	}
	if resp.Index.Chunks != 2 {
		t.Errorf("Index.Chunks = %d, want 2", resp.Index.Chunks)
	}
}

func TestDocumentsHandler_Delete(t *testing.T) {
	idx := newStubIndex()
	store := &stubStore{}
	handler := newDocumentsHandler(t, idx, store)

	// seed through the pipeline so the index has something to remove
	rec := postJSON(t, http.HandlerFunc(handler.Ingest), "/api/v1/documents", IngestRequest{
		Name:    "doc.txt",
		Content: "some content here",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed ingest status = %d", rec.Code)
	}

	r := chi.NewRouter()
	r.Delete("/api/v1/documents/{name}", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc.txt", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp DeleteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Document != "doc.txt" || resp.ChunksRemoved != 1 {
		t.Errorf("response = %+v", resp)
	}
	if len(idx.deleted) != 1 || idx.deleted[0] != "doc.txt" {
		t.Errorf("index deletes = %v", idx.deleted)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "doc.txt" {
		t.Errorf("catalog deletes = %v", store.deletes)
	}
}
