// Package chunk splits raw text into overlapping, boundary-aware chunks.
//
// A chunk is the unit of embedding and retrieval: a bounded-length slice
// of source text, preferably ending at a sentence or paragraph boundary.
package chunk

import (
	"fmt"
	"strings"
)

// Default chunking parameters, matching the retrieval defaults.
const (
	// DefaultSize is the sliding window length in characters.
	DefaultSize = 500

	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 50
)

// separators are boundary candidates in fixed priority order. The first
// type with any occurrence strictly after the window start wins; later
// types are not considered even if they occur closer to the window end.
var separators = []string{". ", "? ", "! ", "\n\n", "\n"}

// Chunker splits text into overlapping chunks at sentence boundaries.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Overlap must be strictly less than size,
// otherwise the window never advances.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Default returns a Chunker with the default size and overlap.
func Default() *Chunker {
	c, _ := New(DefaultSize, DefaultOverlap)
	return c
}

// Size returns the configured window length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap length.
func (c *Chunker) Overlap() int { return c.overlap }

// Split splits text into overlapping chunks.
//
// Windows are measured in runes so multi-byte text never splits inside
// a character. For each window the end is pulled back to just past the
// highest-priority separator found strictly after the window start;
// if no separator occurs the window keeps its full length. Empty and
// whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(text)
	if len([]rune(trimmed)) <= c.size {
		return []string{trimmed}
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + c.size
		if end < len(runes) {
			for _, sep := range separators {
				idx := lastIndexWithin(runes, sep, start, end)
				if idx > start {
					end = idx + len([]rune(sep))
					break
				}
			}
		}

		// The slice is clamped but the advance is not: a final window
		// that overshoots the text must still move start past the end.
		sliceEnd := min(end, len(runes))
		piece := strings.TrimSpace(string(runes[start:sliceEnd]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		start = end - c.overlap
	}

	return chunks
}

// lastIndexWithin returns the highest index i in [start, end-len(sep)]
// where sep occurs in runes, or -1 if it does not occur there.
func lastIndexWithin(runes []rune, sep string, start, end int) int {
	sepRunes := []rune(sep)
	for i := end - len(sepRunes); i >= start; i-- {
		if matchAt(runes, sepRunes, i) {
			return i
		}
	}
	return -1
}

func matchAt(runes, sep []rune, at int) bool {
	for j, r := range sep {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}
