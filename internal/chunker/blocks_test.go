package chunker

import (
	"strings"
	"testing"
)

func TestGroupBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []BlockType
	}{
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "single paragraph",
			input: "First sentence here.\nSecond sentence here.",
			want:  []BlockType{BlockParagraph},
		},
		{
			name:  "blank line splits paragraphs",
			input: "First paragraph.\n\nSecond paragraph.",
			want:  []BlockType{BlockParagraph, BlockParagraph},
		},
		{
			name:  "type change flushes",
			input: "# Heading\nSome prose follows directly.",
			want:  []BlockType{BlockHeading, BlockParagraph},
		},
		{
			name:  "table block stays together",
			input: "Columns: A:City | B:Sales\n[R1] New York | 120\n[R2] Chicago | 80",
			want:  []BlockType{BlockTable},
		},
		{
			name:  "mixed document",
			input: "# Report\n\nIntro prose goes here.\n\nName: Alice\nRole: Engineer\n\n- item one\n- item two",
			want:  []BlockType{BlockHeading, BlockParagraph, BlockKV, BlockList},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := GroupBlocks(strings.Split(tt.input, "\n"))
			if len(blocks) != len(tt.want) {
				t.Fatalf("GroupBlocks() produced %d blocks, want %d", len(blocks), len(tt.want))
			}
			for i, block := range blocks {
				if block.Type != tt.want[i] {
					t.Errorf("block[%d].Type = %v, want %v", i, block.Type, tt.want[i])
				}
				if len(block.Lines) == 0 {
					t.Errorf("block[%d] has no lines", i)
				}
			}
		})
	}
}

func TestGroupBlocks_BlankIsHardBoundary(t *testing.T) {
	// Two single-line paragraphs separated by a blank line must become two
	// one-line blocks, never one merged block.
	blocks := GroupBlocks([]string{"First paragraph line.", "", "Second paragraph line."})
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	for i, block := range blocks {
		if len(block.Lines) != 1 {
			t.Errorf("block[%d] has %d lines, want 1", i, len(block.Lines))
		}
	}
}
