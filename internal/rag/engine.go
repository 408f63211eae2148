package rag

import (
	"context"
	"fmt"
	"strings"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
)

const (
	defaultTopK = 5
	maxTopK     = 20

	noInformationAnswer = "I couldn't find any relevant information in the ingested documents to answer this question."
)

// ChatClient is the generation backend the engine talks to.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Engine answers questions by retrieving grounding chunks and calling the
// generation backend.
type Engine interface {
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

type ragEngine struct {
	orchestrator *Orchestrator
	chat         ChatClient
	topK         int
}

// NewEngine creates a RAG engine. topK is the default result size when the
// request does not specify one.
func NewEngine(orchestrator *Orchestrator, chat ChatClient, topK int) Engine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ragEngine{
		orchestrator: orchestrator,
		chat:         chat,
		topK:         topK,
	}
}

// Ask retrieves grounding chunks for the question and generates an answer.
// An empty retrieval returns a fixed "no information" answer rather than an
// error.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	topK := req.TopK
	if topK <= 0 {
		topK = e.topK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	retrieval, err := e.orchestrator.Retrieve(ctx, req.Question, topK, req.Documents)
	if err != nil {
		return AskResponse{}, err
	}

	if len(retrieval.Chunks) == 0 {
		logger.InfoContext(ctx, "no grounding chunks retrieved", "question_length", len(req.Question))
		return AskResponse{
			Answer:     noInformationAnswer,
			References: []Reference{},
			QueryType:  string(retrieval.QueryType),
		}, nil
	}

	contextString := buildContext(retrieval)

	systemPrompt := "You are a helpful assistant that answers questions based on the provided document context. " +
		"Answer using only the information from the context below. If the context doesn't contain enough " +
		"information to answer the question, say so. When a calculated result is provided, state that exact " +
		"number rather than recomputing it."

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("%s\n\n%s", req.Question, contextString)},
	}

	logger.InfoContext(ctx, "sending request to LLM",
		"query_type", retrieval.QueryType,
		"chunks", len(retrieval.Chunks),
		"confidence", retrieval.Confidence,
		"context_length", len(contextString),
	)

	answer, err := e.chat.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: 0.7})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return AskResponse{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	references := make([]Reference, 0, len(retrieval.Chunks))
	for _, chunk := range retrieval.Chunks {
		references = append(references, Reference{
			Document:   chunk.Meta.SourceDoc,
			Section:    chunk.Meta.Section,
			Page:       chunk.Meta.Page,
			ChunkIndex: chunk.Meta.ChunkIndex,
			Score:      chunk.Score,
		})
	}

	return AskResponse{
		Answer:     answer,
		References: references,
		QueryType:  string(retrieval.QueryType),
		Confidence: retrieval.Confidence,
		Aggregate:  retrieval.Aggregate,
	}, nil
}

// buildContext formats the retrieved chunks (and any computed aggregate)
// into the prompt context block.
func buildContext(retrieval Retrieval) string {
	var b strings.Builder
	b.WriteString("--- Context from documents ---\n\n")

	if retrieval.Aggregate != nil {
		b.WriteString("Calculated result (authoritative, do not recompute):\n")
		b.WriteString(retrieval.Aggregate.Summary)
		b.WriteString("\n\n")
	}

	for _, chunk := range retrieval.Chunks {
		fmt.Fprintf(&b, "[Document: %s]", chunk.Meta.SourceDoc)
		if chunk.Meta.Section != "" {
			fmt.Fprintf(&b, " Section: %s", chunk.Meta.Section)
		}
		if chunk.Meta.Page > 0 {
			fmt.Fprintf(&b, " Page: %d", chunk.Meta.Page)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Content: %s\n\n", chunk.Text)
	}

	b.WriteString("--- End Context ---")
	return b.String()
}
