package rag

import "strings"

// QueryType is the detected intent class of a question. It drives the
// retrieval strategy, not the answer wording.
type QueryType string

const (
	QueryAggregation QueryType = "aggregation"
	QueryComparative QueryType = "comparative"
	QuerySummary     QueryType = "summary"
	QueryFactual     QueryType = "factual"
	QueryProcess     QueryType = "process"
	QueryGeneral     QueryType = "general"
)

// Detection categories in priority order. First category with a matching
// indicator wins, so "compare total sales" is still an aggregation query.
var queryTypeIndicators = []struct {
	queryType  QueryType
	indicators []string
}{
	{QueryAggregation, []string{
		"total", "sum", "count", "how many", "average", "mean",
		"max", "maximum", "min", "minimum", "highest", "lowest",
		"calculate", "breakdown", "aggregate", "all",
	}},
	{QueryComparative, []string{
		"compare", "comparison", "versus", " vs ", "difference",
		"differ", "better", "worse", "pros and cons", "between",
	}},
	{QuerySummary, []string{
		"summarize", "summarise", "summary", "overview", "describe",
		"tell me about", "explain the main",
	}},
	{QueryFactual, []string{
		"what is", "what are", "who is", "who are", "when",
		"where", "which", "define", "definition",
	}},
	{QueryProcess, []string{
		"how to", "how do", "how can", "steps", "step by step",
		"procedure", "process for", "guide",
	}},
}

// DetectQueryType classifies a question against the indicator lists above,
// case-insensitive. Single-word indicators match whole tokens so that "sum"
// does not fire inside "summarize"; phrases match as substrings.
func DetectQueryType(question string) QueryType {
	lower := strings.ToLower(question)
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(lower) {
		tokens[strings.Trim(token, ".,;:?!'\"()")] = true
	}

	for _, category := range queryTypeIndicators {
		for _, indicator := range category.indicators {
			if strings.Contains(indicator, " ") {
				if strings.Contains(lower, indicator) {
					return category.queryType
				}
			} else if tokens[indicator] {
				return category.queryType
			}
		}
	}
	return QueryGeneral
}
