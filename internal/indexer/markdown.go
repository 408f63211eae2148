package indexer

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Data rows are numbered from 2: the header occupies row 1 of the source
// table.
const firstDataRow = 2

// MarkdownFlattener renders markdown into the plain-text conventions the
// chunker understands: headings keep their "#" prefix, list items keep
// bullets, code blocks keep indentation, and tables become a "Columns:"
// header plus "[R<n>]" data rows so aggregation can compute over them.
type MarkdownFlattener struct {
	parser goldmark.Markdown
}

// NewMarkdownFlattener creates a flattener with table support enabled.
func NewMarkdownFlattener() *MarkdownFlattener {
	return &MarkdownFlattener{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Flatten converts markdown content to marker-convention plain text. Blocks
// are separated by blank lines, which the chunker treats as hard boundaries.
func (f *MarkdownFlattener) Flatten(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	doc := f.parser.Parser().Parse(text.NewReader(content))

	var blocks []string
	var tableLines []string
	rowNum := firstDataRow

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		kind := n.Kind().String()

		if !entering {
			if kind == "Table" && len(tableLines) > 0 {
				blocks = append(blocks, strings.Join(tableLines, "\n"))
				tableLines = nil
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			blocks = append(blocks, strings.Repeat("#", node.Level)+" "+nodeText(node, content))
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			blocks = append(blocks, nodeText(node, content))
			return ast.WalkSkipChildren, nil

		case *ast.List:
			blocks = append(blocks, listLines(node, content))
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			blocks = append(blocks, codeLines(node.Lines(), content))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			blocks = append(blocks, codeLines(node.Lines(), content))
			return ast.WalkSkipChildren, nil
		}

		// table extension nodes carry no exported types here; dispatch on
		// the kind name the way goldmark examples do
		switch kind {
		case "Table":
			rowNum = firstDataRow
			return ast.WalkContinue, nil
		case "TableHeader":
			tableLines = append(tableLines, columnsHeader(n, content))
			return ast.WalkSkipChildren, nil
		case "TableRow":
			tableLines = append(tableLines, fmt.Sprintf("[R%d] %s", rowNum, strings.Join(rowCells(n, content), " | ")))
			rowNum++
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	return strings.Join(blocks, "\n\n")
}

// nodeText collects the plain text beneath a node.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func listLines(list *ast.List, content []byte) string {
	var lines []string
	num := list.Start
	if num == 0 {
		num = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		itemText := nodeText(item, content)
		if list.IsOrdered() {
			lines = append(lines, fmt.Sprintf("%d. %s", num, itemText))
			num++
		} else {
			lines = append(lines, "- "+itemText)
		}
	}
	return strings.Join(lines, "\n")
}

func codeLines(lines *text.Segments, content []byte) string {
	var out []string
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		out = append(out, "    "+strings.TrimRight(string(segment.Value(content)), "\n"))
	}
	return strings.Join(out, "\n")
}

func columnsHeader(row ast.Node, content []byte) string {
	cells := rowCells(row, content)
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%s:%s", columnLetter(i), cell)
	}
	return "Columns: " + strings.Join(parts, " | ")
}

// columnLetter maps a zero-based column position to its spreadsheet letter.
func columnLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return string(rune('A'+i/26-1)) + string(rune('A'+i%26))
}

func rowCells(row ast.Node, content []byte) []string {
	var cells []string
	_ = ast.Walk(row, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(n.Kind().String(), "TableCell") {
			cells = append(cells, nodeText(n, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return cells
}
