package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"docuchat-ai/internal/service"
)

func mustChunker(t *testing.T, size, overlap int, terms []string) *Chunker {
	t.Helper()
	c, err := New(size, overlap, terms)
	if err != nil {
		t.Fatalf("New(%d, %d) error: %v", size, overlap, err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "valid", size: 800, overlap: 120, wantErr: false},
		{name: "zero overlap", size: 800, overlap: 0, wantErr: false},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -10, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 800, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 800, overlap: 800, wantErr: true},
		{name: "overlap exceeds size", size: 800, overlap: 900, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap, nil)
			if tt.wantErr {
				if !errors.Is(err, service.ErrInvalidConfiguration) {
					t.Errorf("New(%d, %d) error = %v, want ErrInvalidConfiguration", tt.size, tt.overlap, err)
				}
				return
			}
			if err != nil {
				t.Errorf("New(%d, %d) unexpected error: %v", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	tests := []struct {
		level       int
		wantSize    int
		wantOverlap int
	}{
		{level: 1, wantSize: 350, wantOverlap: 40},
		{level: 10, wantSize: 2000, wantOverlap: 400},
		{level: 0, wantSize: 350, wantOverlap: 40},    // clamped up
		{level: 11, wantSize: 2000, wantOverlap: 400}, // clamped down
	}

	for _, tt := range tests {
		c := mustChunker(t, 800, 120, nil)
		c.SetLevel(tt.level)
		if c.ChunkSize() != tt.wantSize {
			t.Errorf("SetLevel(%d) chunk size = %d, want %d", tt.level, c.ChunkSize(), tt.wantSize)
		}
		if c.ChunkOverlap() != tt.wantOverlap {
			t.Errorf("SetLevel(%d) overlap = %d, want %d", tt.level, c.ChunkOverlap(), tt.wantOverlap)
		}
	}
}

func TestSetLevel_OverlapStaysUnderSize(t *testing.T) {
	c := mustChunker(t, 800, 120, nil)
	for level := 1; level <= 10; level++ {
		c.SetLevel(level)
		if c.ChunkOverlap() > c.ChunkSize()-100 {
			t.Errorf("level %d: overlap %d exceeds size %d - 100", level, c.ChunkOverlap(), c.ChunkSize())
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	c := mustChunker(t, 800, 120, nil)
	for _, input := range []string{"", "   ", "\n\n\n"} {
		chunks, stats := c.ChunkText(input)
		if len(chunks) != 0 {
			t.Errorf("ChunkText(%q) produced %d chunks, want 0", input, len(chunks))
		}
		if stats == nil {
			t.Errorf("ChunkText(%q) returned nil stats", input)
		}
	}
}

func TestChunkText_SizeBound(t *testing.T) {
	c := mustChunker(t, 200, 40, nil)

	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "Sentence number %d carries some ordinary prose content. ", i)
	}

	chunks, _ := c.ChunkText(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk.Text) > 200 {
			t.Errorf("chunk[%d] length %d exceeds chunk size 200", i, len(chunk.Text))
		}
		if chunk.Index != i {
			t.Errorf("chunk[%d].Index = %d", i, chunk.Index)
		}
	}
}

func TestChunkText_TerminatesUnderPathologicalOverlap(t *testing.T) {
	c := mustChunker(t, 10, 9, nil)
	text := strings.Repeat("abcde ", 40)
	chunks, _ := c.ChunkText(text)
	if len(chunks) == 0 {
		t.Fatal("expected non-empty chunk list for non-empty input")
	}
	// Iteration cap: N/(size-overlap) + 10.
	maxChunks := len(text)/(10-9) + 10
	if len(chunks) > maxChunks {
		t.Errorf("produced %d chunks, cap is %d", len(chunks), maxChunks)
	}
}

func TestChunkText_ParagraphCollapsesWhitespace(t *testing.T) {
	c := mustChunker(t, 800, 120, nil)
	chunks, _ := c.ChunkText("some   text\nwith    uneven spacing here")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	want := "some text with uneven spacing here"
	if chunks[0].Text != want {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, want)
	}
}

func TestChunkText_TableHeaderPropagation(t *testing.T) {
	c := mustChunker(t, 800, 120, nil)

	var b strings.Builder
	b.WriteString("Columns: A:Name | B:Sales\n")
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&b, "[R%d] Branch %d | %d\n", i, i, i*10)
	}

	chunks, stats := c.ChunkText(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected the table to split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Type != BlockTable {
			t.Errorf("chunk[%d].Type = %v, want table", i, chunk.Type)
		}
		if !strings.HasPrefix(chunk.Text, "Columns: A:Name | B:Sales") {
			t.Errorf("chunk[%d] lost its column header: %q", i, Preview(chunk.Text, 60))
		}
	}
	if stats.Blocks["table"] != 1 {
		t.Errorf("stats.Blocks[table] = %d, want 1", stats.Blocks["table"])
	}
}

func TestChunkText_TableAdaptiveRows(t *testing.T) {
	c := mustChunker(t, 2000, 200, nil)

	// Wide rows (>100 chars average) should cap at 10 rows per chunk.
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "[R%d] %s | %d\n", i, strings.Repeat("cell-content ", 10), i)
	}

	chunks, _ := c.ChunkText(b.String())
	for i, chunk := range chunks {
		rows := strings.Count(chunk.Text, "[R")
		if rows > 10 {
			t.Errorf("chunk[%d] has %d rows, want at most 10", i, rows)
		}
	}
}

func TestChunkText_KVGrouping(t *testing.T) {
	c := mustChunker(t, 800, 120, nil)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Setting%02d: value number %d\n", i, i)
	}

	chunks, stats := c.ChunkText(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected kv block to split, got %d chunks", len(chunks))
	}
	// Flush limit is max(chunkSize/2, 400) = 400.
	for i, chunk := range chunks {
		if chunk.Type != BlockKV {
			t.Errorf("chunk[%d].Type = %v, want kv", i, chunk.Type)
		}
		if len(chunk.Text) > 800 {
			t.Errorf("chunk[%d] length %d exceeds chunk size", i, len(chunk.Text))
		}
	}
	if stats.Blocks["kv"] != 1 {
		t.Errorf("stats.Blocks[kv] = %d, want 1", stats.Blocks["kv"])
	}
}

func TestChunkText_PreserveTermKeptWhole(t *testing.T) {
	c := mustChunker(t, 100, 20, []string{"vacation allowance"})

	// Place the preserve term straddling the 100-character boundary.
	prefix := strings.Repeat("xx ", 32) // 96 chars
	text := prefix + "vacation allowance applies. " + strings.Repeat("trailing words ", 10)

	chunks, _ := c.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "vacation allowance") {
		t.Errorf("preserve term split across chunks; first chunk = %q", chunks[0].Text)
	}
}

func TestChunkText_Stats(t *testing.T) {
	c := mustChunker(t, 800, 120, nil)
	input := "# Report\n\nIntro prose goes here for context.\n\nColumns: A:City | B:Sales\n[R1] New York | 120\n\nName: Alice\nRole: Engineer\n\n- item one\n- item two"

	chunks, stats := c.ChunkText(input)
	if stats.TotalChunks() != len(chunks) {
		t.Errorf("TotalChunks() = %d, want %d", stats.TotalChunks(), len(chunks))
	}
	for _, blockType := range []string{"heading", "paragraph", "table", "kv", "list"} {
		if stats.Blocks[blockType] == 0 {
			t.Errorf("stats.Blocks[%s] = 0, want > 0", blockType)
		}
	}
	wantPatterns := map[string]bool{}
	for _, p := range stats.Patterns {
		wantPatterns[p] = true
	}
	for _, p := range []string{"tables", "key_value_pairs", "headings", "lists", "structured_rows"} {
		if !wantPatterns[p] {
			t.Errorf("pattern %q not detected; got %v", p, stats.Patterns)
		}
	}
	if stats.Lengths.Max == 0 || stats.Lengths.Min == 0 {
		t.Errorf("length stats not recorded: %+v", stats.Lengths)
	}
}

func TestSplitLong_MultibyteHardCut(t *testing.T) {
	c := mustChunker(t, 100, 20, nil)

	// unbroken CJK text has no spaces or sentence terminators, so every
	// window takes the hard-cut path
	chunks := c.splitLong(strings.Repeat("文", 300))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk[%d] contains invalid UTF-8 (len=%d)", i, len(chunk))
		}
		if len(chunk) > 100 {
			t.Errorf("chunk[%d] length %d exceeds chunk size 100", i, len(chunk))
		}
	}
}

func TestChunkText_MultibyteProse(t *testing.T) {
	c := mustChunker(t, 120, 20, nil)

	chunks, _ := c.ChunkText(strings.Repeat("これは長い日本語の文章です。", 40))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk.Text) {
			t.Errorf("chunk[%d] contains invalid UTF-8: %q", i, chunk.Text)
		}
	}
}
