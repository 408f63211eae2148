package handlers

import (
	"context"

	"docuchat-ai/internal/rag"
	"docuchat-ai/internal/service"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

// fakeEngine returns a canned response or error.
type fakeEngine struct {
	resp    rag.AskResponse
	err     error
	lastReq rag.AskRequest
	calls   int
}

func (f *fakeEngine) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	f.lastReq = req
	f.calls++
	if f.err != nil {
		return rag.AskResponse{}, f.err
	}
	return f.resp, nil
}

// stubIndex serves fixed results and records mutations.
type stubIndex struct {
	results  []vectorstore.Result
	statsErr error
	added    map[string][]string
	deleted  []string
}

func newStubIndex(results ...vectorstore.Result) *stubIndex {
	return &stubIndex{results: results, added: make(map[string][]string)}
}

func (s *stubIndex) Add(ctx context.Context, document string, chunks []string) (int, error) {
	s.added[document] = chunks
	return len(chunks), nil
}

func (s *stubIndex) Search(ctx context.Context, query string, topK int) ([]vectorstore.Result, error) {
	if topK > len(s.results) {
		topK = len(s.results)
	}
	return s.results[:topK], nil
}

func (s *stubIndex) DocumentChunks(ctx context.Context, document string) ([]vectorstore.Result, error) {
	var out []vectorstore.Result
	for _, res := range s.results {
		if res.Meta.SourceDoc == document {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *stubIndex) DeleteDocument(ctx context.Context, document string) (int, error) {
	s.deleted = append(s.deleted, document)
	return len(s.added[document]), nil
}

func (s *stubIndex) Clear(ctx context.Context) error { return nil }

func (s *stubIndex) Stats(ctx context.Context) (vectorstore.IndexStats, error) {
	if s.statsErr != nil {
		return vectorstore.IndexStats{}, s.statsErr
	}
	docs := make(map[string]bool)
	for _, res := range s.results {
		docs[res.Meta.SourceDoc] = true
	}
	stats := vectorstore.IndexStats{Chunks: len(s.results)}
	for doc := range docs {
		stats.Documents = append(stats.Documents, doc)
	}
	return stats, nil
}

// stubStore is an in-memory DocumentStore.
type stubStore struct {
	docs    []storage.Document
	deletes []string
}

func (s *stubStore) Upsert(ctx context.Context, doc storage.Document) error {
	for i, existing := range s.docs {
		if existing.Name == doc.Name {
			s.docs[i] = doc
			return nil
		}
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *stubStore) GetByName(ctx context.Context, name string) (storage.Document, error) {
	for _, doc := range s.docs {
		if doc.Name == name {
			return doc, nil
		}
	}
	return storage.Document{}, service.ErrNotFound
}

func (s *stubStore) ListAll(ctx context.Context) ([]storage.Document, error) {
	return s.docs, nil
}

func (s *stubStore) DeleteByName(ctx context.Context, name string) error {
	s.deletes = append(s.deletes, name)
	return nil
}
