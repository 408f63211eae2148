package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docuchat-ai/internal/handlers"
	"docuchat-ai/internal/indexer"
	"docuchat-ai/internal/rag"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine       rag.Engine
	Orchestrator *rag.Orchestrator
	Pipeline     *indexer.Pipeline
	Documents    storage.DocumentStore
	Index        vectorstore.Index
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	askHandler := handlers.NewAskHandler(deps.Engine)
	searchHandler := handlers.NewSearchHandler(deps.Orchestrator)
	documentsHandler := handlers.NewDocumentsHandler(deps.Pipeline, deps.Documents, deps.Index)
	healthHandler := handlers.NewHealthHandler(deps.Index)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/search", searchHandler)
		r.Post("/documents", documentsHandler.Ingest)
		r.Get("/documents", documentsHandler.List)
		r.Delete("/documents/{name}", documentsHandler.Delete)
	})

	r.Method(http.MethodGet, "/healthz", healthHandler)

	return r
}
