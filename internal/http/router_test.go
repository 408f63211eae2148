package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docuchat-ai/internal/chunker"
	"docuchat-ai/internal/indexer"
	"docuchat-ai/internal/rag"
	"docuchat-ai/internal/service"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

type staticEngine struct{}

func (staticEngine) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	return rag.AskResponse{Answer: "ok", References: []rag.Reference{}, QueryType: "general"}, nil
}

type emptyIndex struct{}

func (emptyIndex) Add(ctx context.Context, document string, chunks []string) (int, error) {
	return len(chunks), nil
}
func (emptyIndex) Search(ctx context.Context, query string, topK int) ([]vectorstore.Result, error) {
	return nil, nil
}
func (emptyIndex) DocumentChunks(ctx context.Context, document string) ([]vectorstore.Result, error) {
	return nil, nil
}
func (emptyIndex) DeleteDocument(ctx context.Context, document string) (int, error) { return 0, nil }
func (emptyIndex) Clear(ctx context.Context) error                                  { return nil }
func (emptyIndex) Stats(ctx context.Context) (vectorstore.IndexStats, error) {
	return vectorstore.IndexStats{}, nil
}

type emptyStore struct{}

func (emptyStore) Upsert(ctx context.Context, doc storage.Document) error { return nil }
func (emptyStore) GetByName(ctx context.Context, name string) (storage.Document, error) {
	return storage.Document{}, service.ErrNotFound
}
func (emptyStore) ListAll(ctx context.Context) ([]storage.Document, error) { return nil, nil }
func (emptyStore) DeleteByName(ctx context.Context, name string) error     { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	idx := emptyIndex{}
	orchestrator, err := rag.NewOrchestrator(idx, nil, nil, 0.4)
	if err != nil {
		t.Fatalf("NewOrchestrator() error: %v", err)
	}
	c, err := chunker.New(800, 120, nil)
	if err != nil {
		t.Fatalf("chunker.New() error: %v", err)
	}
	return NewRouter(&Deps{
		Engine:       staticEngine{},
		Orchestrator: orchestrator,
		Pipeline:     indexer.NewPipeline(c, idx, emptyStore{}),
		Documents:    emptyStore{},
		Index:        idx,
	})
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"ask", http.MethodPost, "/api/v1/ask", `{"question":"what is this"}`, http.StatusOK},
		{"search", http.MethodPost, "/api/v1/search", `{"query":"anything"}`, http.StatusOK},
		{"ingest", http.MethodPost, "/api/v1/documents", `{"name":"a.txt","content":"hello"}`, http.StatusCreated},
		{"list", http.MethodGet, "/api/v1/documents", "", http.StatusOK},
		{"delete", http.MethodDelete, "/api/v1/documents/a.txt", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (body: %s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
