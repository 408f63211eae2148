package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// LineType is the category assigned to a single line of normalized text.
type LineType int

const (
	LineBlank LineType = iota
	LineTable
	LineHeading
	LineList
	LineCode
	LineKV
	LineNormal
)

// String returns the category name used in statistics output.
func (t LineType) String() string {
	switch t {
	case LineBlank:
		return "blank"
	case LineTable:
		return "table"
	case LineHeading:
		return "heading"
	case LineList:
		return "list"
	case LineCode:
		return "code"
	case LineKV:
		return "kv"
	default:
		return "normal"
	}
}

const (
	maxHeadingLen   = 100
	maxHeadingWords = 6
	maxColonKeyLen  = 60
	maxEqualsKeyLen = 40
	commaTableMin   = 3
	commaTableAvg   = 40
)

var (
	numberedListRe = regexp.MustCompile(`^\d+[.)]\s+`)
	codeKeywordRe  = regexp.MustCompile(`^(import|from|def|class|async|await|return|try|except|finally)\b`)
	kvColonRe      = regexp.MustCompile(`^([^:]{1,60}):\s+\S`)
	kvEqualsRe     = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_ .\-]{0,39})\s*=\s*\S`)
)

// ClassifyLine assigns a category to one line of text. It is a pure function:
// the same line always yields the same category. The rules are ordered and the
// first match wins; structured-row markers are checked before kv and heading
// so exported spreadsheet rows are never misclassified.
func ClassifyLine(line string) LineType {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LineBlank
	}

	if isRowMarker(trimmed) || strings.HasPrefix(trimmed, "[Columns:") || strings.HasPrefix(trimmed, "Columns:") {
		return LineTable
	}

	if isHeadingLine(trimmed) {
		return LineHeading
	}

	if isListLine(trimmed) {
		return LineList
	}

	if isCodeLine(line, trimmed) {
		return LineCode
	}

	if isTableLine(trimmed) {
		return LineTable
	}

	if kvColonRe.MatchString(trimmed) || kvEqualsRe.MatchString(trimmed) {
		return LineKV
	}

	return LineNormal
}

func isHeadingLine(trimmed string) bool {
	if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "==") || strings.HasPrefix(trimmed, "--") {
		return true
	}
	// Short all-uppercase lines read as section headings in extracted text.
	if len(trimmed) < maxHeadingLen && len(strings.Fields(trimmed)) <= maxHeadingWords {
		hasLetter := false
		for _, r := range trimmed {
			if unicode.IsLetter(r) {
				hasLetter = true
				if unicode.IsLower(r) {
					return false
				}
			}
		}
		return hasLetter
	}
	return false
}

func isListLine(trimmed string) bool {
	for _, bullet := range []string{"- ", "• ", "* "} {
		if strings.HasPrefix(trimmed, bullet) {
			return true
		}
	}
	return numberedListRe.MatchString(trimmed)
}

func isCodeLine(raw, trimmed string) bool {
	if strings.HasPrefix(trimmed, "```") {
		return true
	}
	// Indentation check runs against the raw line; trimming would erase it.
	if strings.HasPrefix(raw, "\t") || strings.HasPrefix(raw, "    ") {
		return true
	}
	return codeKeywordRe.MatchString(trimmed)
}

func isTableLine(trimmed string) bool {
	if strings.ContainsAny(trimmed, "|\t") {
		return true
	}
	commas := strings.Count(trimmed, ",")
	if commas < commaTableMin {
		return false
	}
	return len(trimmed)/commas < commaTableAvg
}
