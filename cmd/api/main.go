package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"docuchat-ai/internal/chunker"
	"docuchat-ai/internal/config"
	"docuchat-ai/internal/http"
	"docuchat-ai/internal/indexer"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/rag"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	ctx := context.Background()

	db, err := storage.NewDatabase(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)
	documentRepo := storage.NewDocumentRepo(db)

	var encoder llm.Encoder
	switch cfg.EmbeddingBackend {
	case "openai":
		encoder, err = llm.NewOpenAIEncoder(cfg.OpenAIAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim)
		if err != nil {
			log.Fatalf("Failed to create OpenAI encoder: %v", err)
		}
	default:
		encoder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim)
	}
	slog.Info("Embedding encoder ready",
		"backend", cfg.EmbeddingBackend, "model", cfg.EmbeddingModelName, "dimension", cfg.EmbeddingDim)

	var index vectorstore.Index
	switch cfg.VectorBackend {
	case "qdrant":
		index, err = vectorstore.NewQdrantIndex(ctx, encoder, cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			log.Fatalf("Failed to connect to Qdrant: %v", err)
		}
		slog.Info("Qdrant index ready", "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
	default:
		index, err = vectorstore.NewLocalIndex(ctx, encoder, cfg.IndexPath, cfg.MetaPath)
		if err != nil {
			log.Fatalf("Failed to open local index: %v", err)
		}
		slog.Info("Local index ready", "index_path", cfg.IndexPath, "meta_path", cfg.MetaPath)
	}

	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap, cfg.PreserveTerms)
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}
	if cfg.ChunkingLevel > 0 {
		textChunker.SetLevel(cfg.ChunkingLevel)
	}

	pipeline := indexer.NewPipeline(textChunker, index, documentRepo)

	var hybrid *rag.HybridRetriever
	if cfg.HybridSearch {
		hybrid, err = rag.NewHybridRetriever(index, cfg.SemanticWeight, cfg.KeywordWeight, nil)
		if err != nil {
			log.Fatalf("Failed to create hybrid retriever: %v", err)
		}
	}

	orchestrator, err := rag.NewOrchestrator(index, hybrid, rag.NewTableAggregator(), cfg.MinSimilarity)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	engine := rag.NewEngine(orchestrator, llmClient, cfg.TopK)
	slog.Info("RAG engine initialized", "hybrid_search", cfg.HybridSearch, "top_k", cfg.TopK)

	router := http.NewRouter(&http.Deps{
		Engine:       engine,
		Orchestrator: orchestrator,
		Pipeline:     pipeline,
		Documents:    documentRepo,
		Index:        index,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
