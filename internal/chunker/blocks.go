package chunker

// BlockType is the type of a grouped run of same-category lines.
type BlockType int

const (
	BlockParagraph BlockType = iota
	BlockTable
	BlockKV
	BlockCode
	BlockHeading
	BlockList
)

// String returns the block type name used in statistics output.
func (t BlockType) String() string {
	switch t {
	case BlockTable:
		return "table"
	case BlockKV:
		return "kv"
	case BlockCode:
		return "code"
	case BlockHeading:
		return "heading"
	case BlockList:
		return "list"
	default:
		return "paragraph"
	}
}

// Block is a transient run of consecutive same-type lines. It exists only
// during chunking and is never persisted.
type Block struct {
	Type  BlockType
	Lines []string
}

func blockTypeFor(t LineType) BlockType {
	switch t {
	case LineTable:
		return BlockTable
	case LineKV:
		return BlockKV
	case LineCode:
		return BlockCode
	case LineHeading:
		return BlockHeading
	case LineList:
		return BlockList
	default:
		return BlockParagraph
	}
}

// GroupBlocks classifies each line and groups consecutive same-type lines
// into typed blocks. Blank lines are hard boundaries: they flush the current
// block and never join two blocks across the gap. A type change also flushes.
func GroupBlocks(lines []string) []Block {
	var blocks []Block
	var current *Block

	flush := func() {
		if current != nil && len(current.Lines) > 0 {
			blocks = append(blocks, *current)
		}
		current = nil
	}

	for _, line := range lines {
		lineType := ClassifyLine(line)
		if lineType == LineBlank {
			flush()
			continue
		}

		blockType := blockTypeFor(lineType)
		if current == nil || current.Type != blockType {
			flush()
			current = &Block{Type: blockType}
		}
		current.Lines = append(current.Lines, line)
	}
	flush()

	return blocks
}
