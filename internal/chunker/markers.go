package chunker

import (
	"regexp"
	"strconv"
	"strings"
)

// Document marker conventions produced by upstream extractors:
//
//	[PAGE n]                       page boundary
//	Columns: A:<name> | B:<name>   table header
//	[R<n>] val | val | ...         table data row
//
// All regex-driven parsing of these markers lives here so the stringly
// conventions can be swapped without touching chunking or retrieval logic.

var (
	pageMarkerRe    = regexp.MustCompile(`\[PAGE (\d+)\]`)
	rowMarkerRe     = regexp.MustCompile(`^\[R(\d+)\]`)
	rowMarkerAnyRe  = regexp.MustCompile(`(?m)^\[R\d+\]`)
	columnsPrefixRe = regexp.MustCompile(`^\[?Columns:\s*`)
	markerStripRe   = regexp.MustCompile(`\[PAGE \d+\]\s*|\[R\d+\]\s*`)
)

func isRowMarker(line string) bool {
	return rowMarkerRe.MatchString(line)
}

// RowID extracts the numeric row id from a "[R<n>] ..." line.
func RowID(line string) (int, bool) {
	m := rowMarkerRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// RowCells splits a "[R<n>] a | b | c" line into its cell values.
func RowCells(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = rowMarkerRe.ReplaceAllString(trimmed, "")
	parts := strings.Split(trimmed, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// IsColumnsHeader reports whether the line is a table column header.
func IsColumnsHeader(line string) bool {
	return columnsPrefixRe.MatchString(strings.TrimSpace(line))
}

// ParseColumnsHeader extracts column names from a header line such as
// "Columns: A:City | B:Sales". Returns nil when the line is not a header.
func ParseColumnsHeader(line string) []string {
	trimmed := strings.TrimSpace(line)
	if !IsColumnsHeader(trimmed) {
		return nil
	}
	trimmed = columnsPrefixRe.ReplaceAllString(trimmed, "")
	trimmed = strings.TrimSuffix(trimmed, "]")
	parts := strings.Split(trimmed, "|")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		// Drop the "A:" position prefix when present.
		if idx := strings.Index(name, ":"); idx >= 0 && idx <= 3 {
			name = strings.TrimSpace(name[idx+1:])
		}
		names = append(names, name)
	}
	return names
}

// PageNumber returns the last page marker found in the text, which is the
// page the chunk's trailing content belongs to.
func PageNumber(text string) (int, bool) {
	matches := pageMarkerRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	page, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0, false
	}
	return page, true
}

// SectionHeading returns the nearest heading line preceding the end of the
// given text, stripped of heading markup.
func SectionHeading(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || pageMarkerRe.MatchString(trimmed) {
			continue
		}
		if ClassifyLine(lines[i]) == LineHeading {
			heading := strings.TrimLeft(trimmed, "#=- ")
			if heading != "" {
				return heading, true
			}
		}
	}
	return "", false
}

// StripMarkers removes page and row markers from the text.
func StripMarkers(text string) string {
	return markerStripRe.ReplaceAllString(text, "")
}

// Preview returns roughly the first n bytes of the text with markers
// stripped and whitespace collapsed, cut back to a rune boundary.
func Preview(text string, n int) string {
	clean := strings.Join(strings.Fields(StripMarkers(text)), " ")
	if len(clean) <= n {
		return clean
	}
	return clean[:runeStart(clean, n)]
}
