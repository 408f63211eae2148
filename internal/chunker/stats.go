package chunker

import (
	"math"
	"sort"
)

// Stats describes one chunking run for observability consumers.
type Stats struct {
	// Blocks counts grouped blocks per block type.
	Blocks map[string]int `json:"blocks"`
	// Chunks counts emitted chunks per producing block type.
	Chunks map[string]int `json:"chunks"`
	// Patterns lists the structural patterns detected in the input.
	Patterns []string `json:"patterns,omitempty"`
	// Lengths summarizes chunk lengths in characters.
	Lengths LengthStats `json:"lengths"`
}

// LengthStats contains statistics about chunk lengths.
type LengthStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

func newStats() *Stats {
	return &Stats{
		Blocks: make(map[string]int),
		Chunks: make(map[string]int),
	}
}

// TotalChunks returns the number of chunks emitted across all block types.
func (s *Stats) TotalChunks() int {
	total := 0
	for _, n := range s.Chunks {
		total += n
	}
	return total
}

// detectPatterns records which structural conventions appeared in the input.
func (s *Stats) detectPatterns(text string) {
	add := func(p string) { s.Patterns = append(s.Patterns, p) }

	if s.Blocks["table"] > 0 {
		add("tables")
	}
	if s.Blocks["kv"] > 0 {
		add("key_value_pairs")
	}
	if s.Blocks["code"] > 0 {
		add("code")
	}
	if s.Blocks["heading"] > 0 {
		add("headings")
	}
	if s.Blocks["list"] > 0 {
		add("lists")
	}
	if pageMarkerRe.MatchString(text) {
		add("page_markers")
	}
	if rowMarkerAnyRe.MatchString(text) {
		add("structured_rows")
	}
}

// recordLengths computes min, max, mean, and p95 over the emitted chunks.
func (s *Stats) recordLengths(chunks []Chunk) {
	if len(chunks) == 0 {
		return
	}

	lengths := make([]int, len(chunks))
	sum := 0
	for i, chunk := range chunks {
		lengths[i] = len(chunk.Text)
		sum += lengths[i]
	}
	sort.Ints(lengths)

	p95Index := int(math.Ceil(float64(len(lengths)) * 0.95))
	if p95Index >= len(lengths) {
		p95Index = len(lengths) - 1
	}

	s.Lengths = LengthStats{
		Min:  lengths[0],
		Max:  lengths[len(lengths)-1],
		Mean: math.Round(float64(sum)/float64(len(lengths))*100) / 100,
		P95:  lengths[p95Index],
	}
}
