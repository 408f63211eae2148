package rag

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/service"
	"docuchat-ai/internal/vectorstore"
)

const (
	multiDocRelevanceBar = float32(0.5)
	fallbackResultCap    = 20
	structuredMarkerMin  = 2
	structuredPipeMin    = 5
)

var structuredExtensions = map[string]bool{
	".xlsx": true, ".xls": true, ".csv": true, ".tsv": true,
}

var structuredMarkers = []string{"===", "|", "[R", "row", "column", "sheet:", "table"}

// Retrieval is the orchestrator's output: the chunks to ground generation
// on, an overall confidence, the detected query type, and a deterministic
// aggregate when one could be computed.
type Retrieval struct {
	Chunks     []vectorstore.Result
	Confidence float32
	QueryType  QueryType
	Aggregate  *AggregateResult
}

// Orchestrator decides the retrieval strategy per query: aggregation
// routing, document filtering, multi-document diversity, and low-confidence
// fallback broadening.
type Orchestrator struct {
	index         vectorstore.Index
	hybrid        *HybridRetriever
	aggregator    *TableAggregator
	minSimilarity float32
}

// NewOrchestrator creates an orchestrator. hybrid may be nil, in which case
// plain semantic search is used.
func NewOrchestrator(index vectorstore.Index, hybrid *HybridRetriever, aggregator *TableAggregator, minSimilarity float32) (*Orchestrator, error) {
	if index == nil {
		return nil, &service.ValidationError{Field: "index", Message: "index is required"}
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return nil, &service.ValidationError{Field: "min_similarity", Message: "must be in [0, 1]"}
	}
	if aggregator == nil {
		aggregator = NewTableAggregator()
	}
	return &Orchestrator{
		index:         index,
		hybrid:        hybrid,
		aggregator:    aggregator,
		minSimilarity: minSimilarity,
	}, nil
}

func (o *Orchestrator) search(ctx context.Context, question string, topK int) ([]vectorstore.Result, error) {
	if o.hybrid != nil {
		return o.hybrid.Search(ctx, question, topK)
	}
	return o.index.Search(ctx, question, topK)
}

// Retrieve runs the per-query strategy machine. An empty index or zero
// results yields confidence 0 and no chunks rather than an error; the caller
// renders that as "no information found".
func (o *Orchestrator) Retrieve(ctx context.Context, question string, topK int, documentFilter []string) (Retrieval, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(question) == "" {
		return Retrieval{}, service.WrapError(service.ErrInvalidInput, "question is empty")
	}
	if topK <= 0 {
		return Retrieval{}, &service.ValidationError{Field: "topK", Message: "must be positive"}
	}

	queryType := DetectQueryType(question)

	// broad initial pass to understand the document landscape before
	// committing to a strategy
	candidates, err := o.search(ctx, question, topK*2)
	if err != nil {
		return Retrieval{}, err
	}
	if len(candidates) == 0 {
		logger.InfoContext(ctx, "retrieval found nothing", "query_type", queryType)
		return Retrieval{QueryType: queryType}, nil
	}

	if queryType == QueryAggregation {
		if retrieval, ok, err := o.retrieveForAggregation(ctx, question, candidates); err != nil {
			return Retrieval{}, err
		} else if ok {
			retrieval.QueryType = queryType
			return retrieval, nil
		}
	}

	var results []vectorstore.Result
	switch {
	case len(documentFilter) > 0:
		results, err = o.retrieveFiltered(ctx, question, topK, documentFilter)
		if err != nil {
			return Retrieval{}, err
		}
	case countRelevantDocuments(candidates) > 1:
		results = diversify(candidates, topK)
	default:
		results = candidates
		if len(results) > topK {
			results = results[:topK]
		}
	}

	results = o.broadenIfWeak(ctx, question, topK, results)

	logger.InfoContext(ctx, "retrieval completed",
		"query_type", queryType, "chunks", len(results), "confidence", averageScore(results))
	return Retrieval{
		Chunks:     results,
		Confidence: averageScore(results),
		QueryType:  queryType,
	}, nil
}

// retrieveForAggregation routes aggregation questions over structured
// documents to a full-document fetch: the aggregator needs every row, and a
// similarity-ranked sample would silently produce wrong sums. Returns
// ok=false when the top document does not look structured.
func (o *Orchestrator) retrieveForAggregation(ctx context.Context, question string, candidates []vectorstore.Result) (Retrieval, bool, error) {
	logger := contextutil.LoggerFromContext(ctx)

	topDoc := candidates[0].Meta.SourceDoc
	var samples []string
	for _, c := range candidates {
		if c.Meta.SourceDoc == topDoc {
			samples = append(samples, c.Text)
		}
	}
	if !isStructuredDocument(topDoc, samples) {
		return Retrieval{}, false, nil
	}

	chunks, err := o.index.DocumentChunks(ctx, topDoc)
	if err != nil {
		return Retrieval{}, false, service.WrapError(err, "failed to fetch document chunks")
	}
	if len(chunks) == 0 {
		return Retrieval{}, false, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	aggregate := o.aggregator.Compute(question, texts)

	logger.InfoContext(ctx, "aggregation routing engaged",
		"document", topDoc, "chunks", len(chunks), "computed", aggregate != nil)
	return Retrieval{
		Chunks:     chunks,
		Confidence: 1.0,
		Aggregate:  aggregate,
	}, true, nil
}

// retrieveFiltered keeps only chunks whose source document name contains one
// of the filter strings, searching a widened pool to compensate.
func (o *Orchestrator) retrieveFiltered(ctx context.Context, question string, topK int, documentFilter []string) ([]vectorstore.Result, error) {
	pool, err := o.search(ctx, question, topK*3)
	if err != nil {
		return nil, err
	}

	filtered := make([]vectorstore.Result, 0, len(pool))
	for _, candidate := range pool {
		doc := strings.ToLower(candidate.Meta.SourceDoc)
		for _, filter := range documentFilter {
			if strings.Contains(doc, strings.ToLower(filter)) {
				filtered = append(filtered, candidate)
				break
			}
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, nil
}

// broadenIfWeak re-runs the search with a wider net when confidence is low,
// keeping whichever result set scores better.
func (o *Orchestrator) broadenIfWeak(ctx context.Context, question string, topK int, results []vectorstore.Result) []vectorstore.Result {
	logger := contextutil.LoggerFromContext(ctx)

	avg := averageScore(results)
	if avg >= o.minSimilarity || len(results) >= fallbackResultCap {
		return results
	}

	broader := topK * 2
	if broader > fallbackResultCap {
		broader = fallbackResultCap
	}
	retried, err := o.search(ctx, question, broader)
	if err != nil {
		logger.WarnContext(ctx, "fallback search failed", "error", err)
		return results
	}
	if averageScore(retried) > avg {
		logger.InfoContext(ctx, "fallback broadening improved confidence",
			"before", avg, "after", averageScore(retried))
		return retried
	}
	return results
}

// countRelevantDocuments counts distinct documents with at least one
// candidate above the relevance bar.
func countRelevantDocuments(candidates []vectorstore.Result) int {
	docs := make(map[string]bool)
	for _, c := range candidates {
		if c.Score > multiDocRelevanceBar {
			docs[c.Meta.SourceDoc] = true
		}
	}
	return len(docs)
}

// diversify round-robins across each relevant document's own score-sorted
// chunks so one dominant document cannot crowd the others out, tops up from
// the below-bar remainder when the relevant documents alone cannot fill
// topK, then re-sorts the combined picks by score.
func diversify(candidates []vectorstore.Result, topK int) []vectorstore.Result {
	perDoc := make(map[string][]int)
	var order []string
	for i, c := range candidates {
		if c.Score <= multiDocRelevanceBar {
			continue
		}
		doc := c.Meta.SourceDoc
		if _, seen := perDoc[doc]; !seen {
			order = append(order, doc)
		}
		perDoc[doc] = append(perDoc[doc], i)
	}
	if len(order) < 2 {
		if len(candidates) > topK {
			return candidates[:topK]
		}
		return candidates
	}

	taken := make([]bool, len(candidates))
	var picked []vectorstore.Result
	for round := 0; len(picked) < topK; round++ {
		progressed := false
		for _, doc := range order {
			indices := perDoc[doc]
			if round >= len(indices) {
				continue
			}
			progressed = true
			taken[indices[round]] = true
			picked = append(picked, candidates[indices[round]])
			if len(picked) == topK {
				break
			}
		}
		if !progressed {
			break
		}
	}

	for i, c := range candidates {
		if len(picked) >= topK {
			break
		}
		if taken[i] {
			continue
		}
		taken[i] = true
		picked = append(picked, c)
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Score > picked[j].Score
	})
	return picked
}

// isStructuredDocument recognizes spreadsheet-like content by file extension
// or by marker density in sampled chunks.
func isStructuredDocument(docName string, samples []string) bool {
	if structuredExtensions[strings.ToLower(filepath.Ext(docName))] {
		return true
	}

	combined := strings.ToLower(strings.Join(samples, "\n"))
	markerHits := 0
	for _, marker := range structuredMarkers {
		if strings.Contains(combined, marker) {
			markerHits++
		}
	}
	if markerHits >= structuredMarkerMin {
		return true
	}

	for _, sample := range samples {
		if strings.Count(sample, "|") > structuredPipeMin {
			return true
		}
	}
	return false
}

func averageScore(results []vectorstore.Result) float32 {
	if len(results) == 0 {
		return 0
	}
	var sum float32
	for _, r := range results {
		sum += r.Score
	}
	return sum / float32(len(results))
}
