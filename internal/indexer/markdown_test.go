package indexer

import (
	"strings"
	"testing"
)

func TestMarkdownFlattener_Table(t *testing.T) {
	input := []byte(`# Sales Report

Quarterly numbers below.

| City | Sales |
| --- | --- |
| New York | 120 |
| Chicago | 80 |
`)

	got := NewMarkdownFlattener().Flatten(input)

	wantLines := []string{
		"# Sales Report",
		"Quarterly numbers below.",
		"Columns: A:City | B:Sales",
		"[R2] New York | 120",
		"[R3] Chicago | 80",
	}
	for _, want := range wantLines {
		if !strings.Contains(got, want) {
			t.Errorf("Flatten() missing line %q in:\n%s", want, got)
		}
	}

	// header and rows stay in one block; no blank line between them
	if !strings.Contains(got, "Columns: A:City | B:Sales\n[R2] New York | 120") {
		t.Errorf("table header separated from rows:\n%s", got)
	}
}

func TestMarkdownFlattener_Lists(t *testing.T) {
	input := []byte(`Unordered:

- first item
- second item

Ordered:

1. step one
2. step two
`)

	got := NewMarkdownFlattener().Flatten(input)

	for _, want := range []string{"- first item", "- second item", "1. step one", "2. step two"} {
		if !strings.Contains(got, want) {
			t.Errorf("Flatten() missing %q in:\n%s", want, got)
		}
	}
}

func TestMarkdownFlattener_HeadingLevels(t *testing.T) {
	input := []byte("# Top\n\n## Nested\n\nBody text.")
	got := NewMarkdownFlattener().Flatten(input)

	if !strings.Contains(got, "# Top") {
		t.Errorf("missing level-1 heading in:\n%s", got)
	}
	if !strings.Contains(got, "## Nested") {
		t.Errorf("missing level-2 heading in:\n%s", got)
	}
}

func TestMarkdownFlattener_CodeBlock(t *testing.T) {
	input := []byte("Example:\n\n```\nprint(\"hi\")\n```\n")
	got := NewMarkdownFlattener().Flatten(input)

	if !strings.Contains(got, "    print(\"hi\")") {
		t.Errorf("code block lost its indentation:\n%s", got)
	}
}

func TestMarkdownFlattener_Empty(t *testing.T) {
	if got := NewMarkdownFlattener().Flatten(nil); got != "" {
		t.Errorf("Flatten(nil) = %q, want empty", got)
	}
}

func TestMarkdownFlattener_BlocksSeparatedByBlankLines(t *testing.T) {
	input := []byte("# Title\n\nFirst paragraph.\n\nSecond paragraph.")
	got := NewMarkdownFlattener().Flatten(input)

	want := "# Title\n\nFirst paragraph.\n\nSecond paragraph."
	if got != want {
		t.Errorf("Flatten() = %q, want %q", got, want)
	}
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "A"}, {1, "B"}, {25, "Z"}, {26, "AA"}, {27, "AB"},
	}
	for _, tt := range tests {
		if got := columnLetter(tt.in); got != tt.want {
			t.Errorf("columnLetter(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
