package rag

import (
	"context"
	"math"
	"sort"
	"strings"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/service"
	"docuchat-ai/internal/vectorstore"
)

const (
	maxCandidatePool = 50
	weightTolerance  = 0.01
)

// ExpansionRule appends vocabulary to a query when any of its trigger
// substrings appears. Rules are deployment configuration, not a synonym
// engine: they let operators map their document set's shorthand onto the
// terms the documents actually use.
type ExpansionRule struct {
	Triggers []string
	Append   []string
}

// HybridRetriever blends semantic similarity with keyword coverage:
// hybrid = semanticWeight*semantic + keywordWeight*keyword.
type HybridRetriever struct {
	index          vectorstore.Index
	semanticWeight float32
	keywordWeight  float32
	rules          []ExpansionRule
}

// NewHybridRetriever validates the weights: both in [0, 1] and summing to
// 1.0 within a small tolerance.
func NewHybridRetriever(index vectorstore.Index, semanticWeight, keywordWeight float32, rules []ExpansionRule) (*HybridRetriever, error) {
	if index == nil {
		return nil, &service.ValidationError{Field: "index", Message: "index is required"}
	}
	if semanticWeight < 0 || semanticWeight > 1 {
		return nil, &service.ValidationError{Field: "semantic_weight", Message: "must be in [0, 1]"}
	}
	if keywordWeight < 0 || keywordWeight > 1 {
		return nil, &service.ValidationError{Field: "keyword_weight", Message: "must be in [0, 1]"}
	}
	if math.Abs(float64(semanticWeight+keywordWeight)-1.0) > weightTolerance {
		return nil, &service.ValidationError{Field: "weights", Message: "semantic and keyword weights must sum to 1.0"}
	}
	return &HybridRetriever{
		index:          index,
		semanticWeight: semanticWeight,
		keywordWeight:  keywordWeight,
		rules:          rules,
	}, nil
}

// ExpandQuery applies the retriever's expansion rules to the question.
func (h *HybridRetriever) ExpandQuery(question string) string {
	lower := strings.ToLower(question)
	expanded := question
	for _, rule := range h.rules {
		for _, trigger := range rule.Triggers {
			if strings.Contains(lower, strings.ToLower(trigger)) {
				expanded += " " + strings.Join(rule.Append, " ")
				break
			}
		}
	}
	return expanded
}

// Search retrieves a doubled candidate pool semantically, rescores each
// candidate with the blended hybrid score, and returns the top topK.
func (h *HybridRetriever) Search(ctx context.Context, question string, topK int) ([]vectorstore.Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		return nil, &service.ValidationError{Field: "topK", Message: "must be positive"}
	}

	expanded := h.ExpandQuery(question)
	pool := topK * 2
	if pool > maxCandidatePool {
		pool = maxCandidatePool
	}

	candidates, err := h.index.Search(ctx, expanded, pool)
	if err != nil {
		return nil, service.WrapError(err, "semantic search failed")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	keywords := queryKeywords(expanded)
	for i := range candidates {
		semantic := candidates[i].Score
		keyword := keywordScore(keywords, candidates[i].Text)
		candidates[i].Score = h.semanticWeight*semantic + h.keywordWeight*keyword
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	logger.DebugContext(ctx, "hybrid search completed",
		"candidates", len(candidates), "returned", topK, "expanded_query", expanded != question)
	return candidates[:topK], nil
}
