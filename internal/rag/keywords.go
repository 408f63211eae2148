package rag

import (
	"strings"
	"unicode"
)

const (
	minKeywordLen      = 3
	frequencyBoostStep = float32(0.1)
	maxFrequencyBoost  = float32(0.5)
)

var keywordStopwords = map[string]struct{}{
	"all": {}, "and": {}, "are": {}, "but": {}, "can": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "how": {}, "its": {}, "our": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "then": {}, "there": {}, "these": {}, "this": {},
	"was": {}, "were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "why": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// queryKeywords extracts the scoring vocabulary from a query: tokens longer
// than two characters that are not stopwords.
func queryKeywords(query string) []string {
	tokens := tokenize(query)
	result := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if len(token) < minKeywordLen {
			continue
		}
		if _, isStop := keywordStopwords[token]; isStop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}

// keywordScore measures how much of the query vocabulary a chunk covers:
// |query ∩ chunk| / |query|, plus a capped boost for repeated occurrences of
// matched keywords. Asymmetric on purpose: chunks are not penalized for
// extra vocabulary of their own.
func keywordScore(keywords []string, chunkText string) float32 {
	if len(keywords) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int)
	for _, token := range tokenize(chunkText) {
		chunkFreq[token]++
	}

	var matched int
	var extraOccurrences int
	for _, keyword := range keywords {
		count := chunkFreq[keyword]
		if count == 0 {
			continue
		}
		matched++
		extraOccurrences += count - 1
	}

	overlap := float32(matched) / float32(len(keywords))
	boost := frequencyBoostStep * float32(extraOccurrences)
	if boost > maxFrequencyBoost {
		boost = maxFrequencyBoost
	}
	return overlap + boost
}
