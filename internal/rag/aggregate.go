package rag

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"docuchat-ai/internal/chunker"
)

// AggregateResult is a deterministic numeric answer computed from structured
// rows. Summary is written for the generation prompt so the language model
// restates the number instead of recomputing it.
type AggregateResult struct {
	Value   float64 `json:"value"`
	Count   int     `json:"count"`
	AggType string  `json:"agg_type"`
	Column  string  `json:"column"`
	Filter  string  `json:"filter"`
	Summary string  `json:"summary"`
}

// FormattedValue renders the value without a trailing ".0" when it is whole.
func (r *AggregateResult) FormattedValue() string {
	if r.Value == math.Trunc(r.Value) {
		return strconv.FormatInt(int64(r.Value), 10)
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// Filter-value extraction attempts, in order. Proper-noun runs after
// "for"/"in" cover questions like "total sales for New York"; the where
// clause covers SQL-flavoured phrasing.
var (
	forFilterRe   = regexp.MustCompile(`\bfor\s+((?:[A-Z][A-Za-z]*)(?:\s+[A-Z][A-Za-z]*)*)`)
	inFilterRe    = regexp.MustCompile(`\bin\s+((?:[A-Z][A-Za-z]*)(?:\s+[A-Z][A-Za-z]*)*)`)
	whereFilterRe = regexp.MustCompile(`(?i)\bwhere\b.*?=\s*'([^']+)'`)
)

// Column keywords recognized in questions, checked in order.
var columnKeywords = []string{
	"sales", "calls", "amount", "quantity", "hours", "score", "total", "revenue",
}

const defaultColumn = "sales"

// TableAggregator computes exact numeric aggregates over row-encoded chunks.
type TableAggregator struct{}

// NewTableAggregator creates an aggregator. It is stateless; one instance
// serves all queries.
func NewTableAggregator() *TableAggregator {
	return &TableAggregator{}
}

// Compute answers an aggregation question from structured chunks, or returns
// nil when no deterministic calculation is possible (no filter value in the
// question, unresolvable column, or zero matching rows). The caller falls
// back to normal generation in that case.
func (a *TableAggregator) Compute(question string, chunks []string) *AggregateResult {
	filter := extractFilterValue(question)
	if filter == "" {
		return nil
	}

	aggType := detectAggregationType(question)
	column := detectTargetColumn(question)

	columnIndex, columnName := locateColumn(chunks, column)
	if columnIndex < 0 {
		return nil
	}

	values, count := collectRowValues(chunks, filter, columnIndex)
	if count == 0 {
		return nil
	}

	result := &AggregateResult{
		Count:   count,
		AggType: aggType,
		Column:  columnName,
		Filter:  filter,
	}
	result.Value = aggregate(aggType, values)
	result.Summary = buildSummary(result, values)
	return result
}

func extractFilterValue(question string) string {
	if m := forFilterRe.FindStringSubmatch(question); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := inFilterRe.FindStringSubmatch(question); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := whereFilterRe.FindStringSubmatch(question); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func detectAggregationType(question string) string {
	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "average") || strings.Contains(lower, "mean") || strings.Contains(lower, "avg"):
		return "average"
	case strings.Contains(lower, "count") || strings.Contains(lower, "how many"):
		return "count"
	case strings.Contains(lower, "max") || strings.Contains(lower, "highest"):
		return "max"
	case strings.Contains(lower, "min") || strings.Contains(lower, "lowest"):
		return "min"
	default:
		return "sum"
	}
}

func detectTargetColumn(question string) string {
	lower := strings.ToLower(question)
	for _, keyword := range columnKeywords {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return defaultColumn
}

// locateColumn parses the first Columns: header found in any chunk and
// returns the index and display name of the column matching target.
// Returns -1 when no header or no matching column exists.
func locateColumn(chunks []string, target string) (int, string) {
	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk, "\n") {
			names := chunker.ParseColumnsHeader(line)
			if names == nil {
				continue
			}
			for i, name := range names {
				if strings.Contains(strings.ToLower(name), target) {
					return i, name
				}
			}
			return -1, ""
		}
	}
	return -1, ""
}

// collectRowValues gathers the numeric value at columnIndex from every row
// containing the filter value. Rows are deduplicated by their [R<n>] id:
// chunk overlap means the same row can appear in two chunks, and counting it
// twice would corrupt sums.
func collectRowValues(chunks []string, filter string, columnIndex int) ([]float64, int) {
	seen := make(map[int]bool)
	var values []float64

	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk, "\n") {
			id, ok := chunker.RowID(line)
			if !ok || seen[id] {
				continue
			}
			if !strings.Contains(line, filter) {
				continue
			}
			cells := chunker.RowCells(line)
			if columnIndex >= len(cells) {
				continue
			}
			value, err := parseNumeric(cells[columnIndex])
			if err != nil {
				continue
			}
			seen[id] = true
			values = append(values, value)
		}
	}
	return values, len(values)
}

func parseNumeric(cell string) (float64, error) {
	cleaned := strings.TrimSpace(cell)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	return strconv.ParseFloat(cleaned, 64)
}

func aggregate(aggType string, values []float64) float64 {
	switch aggType {
	case "count":
		return float64(len(values))
	case "average":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case "max":
		maxVal := values[0]
		for _, v := range values[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		return maxVal
	case "min":
		minVal := values[0]
		for _, v := range values[1:] {
			if v < minVal {
				minVal = v
			}
		}
		return minVal
	default:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	}
}

// buildSummary writes a human-readable breakdown: matched rows, the literal
// values, the formula, and the final answer.
func buildSummary(result *AggregateResult, values []float64) string {
	formatted := make([]string, len(values))
	for i, v := range values {
		if v == math.Trunc(v) {
			formatted[i] = strconv.FormatInt(int64(v), 10)
		} else {
			formatted[i] = strconv.FormatFloat(v, 'f', 2, 64)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Calculated from table data: %d row(s) match %q.\n", result.Count, result.Filter)
	fmt.Fprintf(&b, "%s values: %s.\n", result.Column, strings.Join(formatted, ", "))

	switch result.AggType {
	case "count":
		fmt.Fprintf(&b, "Count of matching rows = %s.", result.FormattedValue())
	case "average":
		fmt.Fprintf(&b, "Average = (%s) / %d = %s.", strings.Join(formatted, " + "), result.Count, result.FormattedValue())
	case "max":
		fmt.Fprintf(&b, "Maximum of the values = %s.", result.FormattedValue())
	case "min":
		fmt.Fprintf(&b, "Minimum of the values = %s.", result.FormattedValue())
	default:
		fmt.Fprintf(&b, "Sum = %s = %s.", strings.Join(formatted, " + "), result.FormattedValue())
	}
	return b.String()
}
