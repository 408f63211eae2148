package chunker

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docuchat-ai/internal/service"
)

const (
	// Level knob bounds: level 1 maps to the smallest chunks, level 10 to the largest.
	levelMinSize    = 350
	levelMaxSize    = 2000
	levelMinOverlap = 40
	levelMaxOverlap = 400
	levelOverlapGap = 100

	// preserveLookahead is how far past the window a preserve term may start
	// and still pull the cut point to the end of its sentence.
	preserveLookahead = 200
	sentenceExtend    = 200

	kvFlushFloor        = 400
	tableOversizeFactor = 2
)

// Chunk is an immutable span of normalized document text produced by exactly
// one block. Length stays at or below the configured chunk size, except for
// deliberate table pass-throughs and preserve-term sentence extension.
type Chunk struct {
	Text  string
	Index int
	Type  BlockType
}

// Chunker splits extracted document text into bounded, overlap-controlled
// chunks using a different strategy per detected block type.
type Chunker struct {
	chunkSize     int
	chunkOverlap  int
	preserveTerms []string
	logger        *slog.Logger
}

// New creates a Chunker. chunkSize must be positive and chunkOverlap must
// satisfy 0 <= chunkOverlap < chunkSize; violations fail construction.
// preserveTerms is the externally supplied list of domain phrases that the
// generic splitter keeps whole across chunk boundaries.
func New(chunkSize, chunkOverlap int, preserveTerms []string) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", chunkSize, service.ErrInvalidConfiguration)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d): %w", chunkOverlap, chunkSize, service.ErrInvalidConfiguration)
	}
	return &Chunker{
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		preserveTerms: preserveTerms,
		logger:        slog.Default(),
	}, nil
}

// ChunkSize returns the active chunk size in characters.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the active overlap in characters.
func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }

// SetLevel maps an operator-facing complexity level (clamped to 1-10)
// linearly onto chunk size and overlap, so deployments tune one knob instead
// of raw character counts. Overlap is additionally clamped to stay at least
// 100 characters under the chunk size.
func (c *Chunker) SetLevel(level int) {
	if level < 1 {
		level = 1
	}
	if level > 10 {
		level = 10
	}
	span := float64(level-1) / 9.0
	c.chunkSize = levelMinSize + int(span*float64(levelMaxSize-levelMinSize))
	overlap := levelMinOverlap + int(span*float64(levelMaxOverlap-levelMinOverlap))
	if overlap > c.chunkSize-levelOverlapGap {
		overlap = c.chunkSize - levelOverlapGap
	}
	c.chunkOverlap = overlap
	c.logger.Debug("chunking level applied", "level", level, "chunk_size", c.chunkSize, "chunk_overlap", c.chunkOverlap)
}

// ChunkText splits extracted document text into chunks and returns run-level
// statistics. Empty or whitespace-only input yields no chunks and no error.
func (c *Chunker) ChunkText(text string) ([]Chunk, *Stats) {
	stats := newStats()
	if strings.TrimSpace(text) == "" {
		return nil, stats
	}

	blocks := GroupBlocks(strings.Split(text, "\n"))

	var chunks []Chunk
	for _, block := range blocks {
		stats.Blocks[block.Type.String()]++

		var pieces []string
		switch block.Type {
		case BlockTable:
			pieces = c.chunkTable(block)
		case BlockKV:
			pieces = c.chunkKV(block)
		default:
			// Code, heading, and list blocks are tracked in statistics but
			// chunked as paragraphs; only table and kv carry dedicated rules.
			pieces = c.chunkParagraph(block)
		}

		for _, piece := range pieces {
			chunks = append(chunks, Chunk{Text: piece, Index: len(chunks), Type: block.Type})
		}
		stats.Chunks[block.Type.String()] += len(pieces)
	}

	stats.detectPatterns(text)
	stats.recordLengths(chunks)
	return chunks, stats
}

// chunkParagraph joins the block's lines with single spaces, collapses
// whitespace, and runs the generic long-text splitter.
func (c *Chunker) chunkParagraph(block Block) []string {
	joined := strings.Join(strings.Fields(strings.Join(block.Lines, " ")), " ")
	return c.splitLong(joined)
}

// chunkTable groups table rows into chunks, choosing rows-per-chunk from the
// average line length. A leading "Columns:" header is stripped and prepended
// to every emitted chunk so each one stays self-describing after splitting;
// the aggregator's column lookup depends on that.
func (c *Chunker) chunkTable(block Block) []string {
	lines := make([]string, 0, len(block.Lines))
	for _, line := range block.Lines {
		lines = append(lines, strings.TrimSpace(line))
	}

	header := ""
	if len(lines) > 0 && IsColumnsHeader(lines[0]) {
		header = lines[0]
		lines = lines[1:]
	}
	if len(lines) == 0 {
		if header != "" {
			return []string{header}
		}
		return nil
	}

	total := 0
	for _, line := range lines {
		total += len(line)
	}
	avg := total / len(lines)
	maxRows := 25
	switch {
	case avg > 100:
		maxRows = 10
	case avg > 60:
		maxRows = 15
	}

	var out []string
	for i := 0; i < len(lines); i += maxRows {
		end := i + maxRows
		if end > len(lines) {
			end = len(lines)
		}
		body := strings.Join(lines[i:end], "\n")

		chunk := body
		if header != "" {
			chunk = header + "\n" + body
		}
		if len(chunk) <= tableOversizeFactor*c.chunkSize {
			out = append(out, chunk)
			continue
		}

		// Oversized even at the adaptive row count: fall back to the generic
		// splitter for the body, re-attaching the header to each piece.
		for _, piece := range c.splitLong(body) {
			if header != "" {
				piece = header + "\n" + piece
			}
			out = append(out, piece)
		}
	}
	return out
}

// chunkKV accumulates key-value lines until the next line would push the
// chunk past max(chunkSize/2, 400) characters, then flushes. Any flushed
// chunk still over the chunk size recurses through the generic splitter.
func (c *Chunker) chunkKV(block Block) []string {
	limit := c.chunkSize / 2
	if limit < kvFlushFloor {
		limit = kvFlushFloor
	}

	var groups []string
	var current []string
	currentLen := 0
	flush := func() {
		if len(current) > 0 {
			groups = append(groups, strings.Join(current, "\n"))
			current = nil
			currentLen = 0
		}
	}

	for _, raw := range block.Lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if currentLen > 0 && currentLen+len(line)+1 > limit {
			flush()
		}
		current = append(current, line)
		currentLen += len(line) + 1
	}
	flush()

	var out []string
	for _, group := range groups {
		if len(group) > c.chunkSize {
			out = append(out, c.splitLong(group)...)
			continue
		}
		out = append(out, group)
	}
	return out
}

// splitLong is the generic long-text splitter used as fallback by every
// strategy and directly for plain prose. It walks a chunk-size window across
// the text, choosing cut points at preserve terms, sentence terminators, or
// spaces, and advances with the configured overlap. An iteration cap
// guarantees termination under pathological overlap configuration.
func (c *Chunker) splitLong(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	step := c.chunkSize - c.chunkOverlap
	maxIter := len(text)/step + 10

	var out []string
	start := 0
	for iter := 0; start < len(text) && iter < maxIter; iter++ {
		end := start + c.chunkSize
		if end >= len(text) {
			if piece := strings.TrimSpace(text[start:]); piece != "" {
				out = append(out, piece)
			}
			break
		}

		cut := c.cutPoint(text, start, end)
		if piece := strings.TrimSpace(text[start:cut]); piece != "" {
			out = append(out, piece)
		}

		next := runeStart(text, cut-c.chunkOverlap)
		if next <= start {
			_, size := utf8.DecodeRuneInString(text[start:])
			next = start + size
		}
		start = next
	}
	return out
}

// cutPoint picks the actual cut position for a window ending at limit.
// Priority: a preserve term spanning the boundary (extend to the end of its
// sentence), then the last sentence terminator, then the last space, then a
// hard cut.
func (c *Chunker) cutPoint(text string, start, limit int) int {
	lookEnd := limit + preserveLookahead
	if lookEnd > len(text) {
		lookEnd = len(text)
	}
	lowerWindow := strings.ToLower(text[start:lookEnd])

	for _, term := range c.preserveTerms {
		needle := strings.ToLower(strings.TrimSpace(term))
		if needle == "" {
			continue
		}
		idx := strings.LastIndex(lowerWindow, needle)
		if idx < 0 {
			continue
		}
		termStart := start + idx
		termEnd := termStart + len(needle)
		if termStart >= limit || termEnd <= limit {
			continue
		}
		// The term straddles the cut; extend to the end of its sentence.
		sentSearchEnd := termEnd + sentenceExtend
		if sentSearchEnd > len(text) {
			sentSearchEnd = len(text)
		}
		if p := strings.IndexAny(text[termEnd:sentSearchEnd], ".!?"); p >= 0 {
			return termEnd + p + 1
		}
		return termEnd
	}

	window := text[start:limit]
	if p := strings.LastIndexAny(window, ".!?"); p > 0 {
		return start + p + 1
	}
	if p := strings.LastIndex(window, " "); p > 0 {
		return start + p
	}
	return runeStart(text, limit)
}

// runeStart backs pos up to the nearest rune boundary so byte-offset cuts
// never split a multibyte character.
func runeStart(s string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(s) {
		return len(s)
	}
	for pos > 0 && !utf8.RuneStart(s[pos]) {
		pos--
	}
	return pos
}
