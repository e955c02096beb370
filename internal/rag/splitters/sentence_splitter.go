package splitters

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// SentenceSplitter cuts normalized text into overlapping chunks that
// respect sentence boundaries where possible. Chunks are exact
// substrings of the input; offsets index into it, so concatenating the
// chunks minus their overlap prefixes reproduces the input verbatim.
// A chunk's new content never exceeds chunkSize runes; a chunk that
// re-covers an overlap tail may run up to chunkSize+chunkOverlap.
type SentenceSplitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSentenceSplitter creates a splitter with the given character
// budget and overlap. chunkOverlap must be smaller than chunkSize.
func NewSentenceSplitter(chunkSize, chunkOverlap int) (*SentenceSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", schema.ErrConfiguration, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", schema.ErrConfiguration, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be less than chunk size (%d)",
			schema.ErrConfiguration, chunkOverlap, chunkSize)
	}
	return &SentenceSplitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split chunks the text for one document. Empty or whitespace-only
// input yields no chunks.
func (s *SentenceSplitter) Split(ctx context.Context, documentID, text string) ([]schema.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	byteOff := byteOffsets(text, runes)
	bounds := sentenceBounds(runes)

	var chunks []schema.Chunk
	emit := func(cs, ce int) {
		idx := len(chunks)
		chunks = append(chunks, schema.Chunk{
			ID:         fmt.Sprintf("%s:%04d", documentID, idx),
			DocumentID: documentID,
			Index:      idx,
			Text:       string(runes[cs:ce]),
			ByteStart:  byteOff[cs],
			ByteEnd:    byteOff[ce],
			CharStart:  cs,
			CharEnd:    ce,
		})
	}

	// cs/ce delimit the running chunk; lastEnd is the end offset of the
	// last emitted chunk, so a chunk is only closed when it carries
	// content beyond it (an overlap-only seed is never emitted).
	cs, ce, lastEnd := 0, 0, 0
	for i := 0; i+1 < len(bounds); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start, end := bounds[i], bounds[i+1]

		// Close the running chunk when the next sentence would push it
		// past the budget, then reseed the new chunk with an overlap
		// tail of the closed one.
		if end-cs > s.chunkSize && ce > lastEnd {
			emit(cs, ce)
			lastEnd = ce
			cs = s.overlapStart(bounds, ce)
		}

		if end-start > s.chunkSize {
			// The sentence alone exceeds the budget: word-level
			// fallback keeps every piece bounded.
			cs, ce = s.splitOversized(runes, start, end, emit)
			lastEnd = end
			continue
		}

		// A freshly seeded chunk always absorbs the sentence that
		// follows it, so a chunk may run up to chunkSize plus the
		// overlap it re-covers; every later sentence goes through the
		// close check above.
		ce = end
	}

	if ce > lastEnd {
		emit(cs, ce)
	}

	return chunks, nil
}

// splitOversized cuts the sentence at [start, end) into word-bounded
// pieces of at most chunkSize runes. A single word longer than the
// budget becomes its own chunk. Returns the seed offsets for the chunk
// that follows.
func (s *SentenceSplitter) splitOversized(runes []rune, start, end int, emit func(cs, ce int)) (int, int) {
	pieceStart := start
	for pieceStart < end {
		pieceEnd := wordEnd(runes, pieceStart, end, s.chunkSize)
		emit(pieceStart, pieceEnd)
		if pieceEnd >= end {
			break
		}
		next := pieceEnd - s.chunkOverlap
		if next <= pieceStart {
			next = pieceEnd
		}
		pieceStart = next
	}
	return s.overlapStart(nil, end), end
}

// wordEnd returns the end of the largest run of whole words starting at
// from that fits in budget runes, capped at limit. If even the first
// word exceeds the budget, its end is returned regardless.
func wordEnd(runes []rune, from, limit, budget int) int {
	hi := from + budget
	if hi >= limit {
		return limit
	}
	// Walk back from the budget cap to the last space, keeping words whole.
	for i := hi; i > from; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\n' {
			return i
		}
	}
	// One unbroken word longer than the budget: take it whole.
	for i := hi; i < limit; i++ {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i
		}
	}
	return limit
}

// overlapStart picks where the next chunk begins so that it re-covers
// the last chunkOverlap runes before pos. A sentence boundary inside
// that window wins; otherwise the tail is taken verbatim at the
// character level.
func (s *SentenceSplitter) overlapStart(bounds []int, pos int) int {
	if s.chunkOverlap == 0 {
		return pos
	}
	win := pos - s.chunkOverlap
	if win < 0 {
		win = 0
	}
	if len(bounds) > 0 {
		// Largest boundary b with win <= b < pos.
		i := sort.SearchInts(bounds, pos)
		if i > 0 && bounds[i-1] >= win && bounds[i-1] < pos {
			return bounds[i-1]
		}
	}
	return win
}

// sentenceBounds returns the sorted rune indexes at which sentences
// start, including 0 and len(runes). A sentence ends after terminal
// punctuation (optionally followed by a closing quote) plus the
// whitespace that follows it; newlines always end a sentence.
func sentenceBounds(runes []rune) []int {
	bounds := []int{0}
	for i := 1; i < len(runes); i++ {
		if runes[i-1] == '\n' {
			bounds = append(bounds, i)
			continue
		}
		if runes[i-1] != ' ' {
			continue
		}
		j := i - 2
		if j >= 0 && isClosingQuote(runes[j]) {
			j--
		}
		if j >= 0 && isTerminal(runes[j]) {
			bounds = append(bounds, i)
		}
	}
	bounds = append(bounds, len(runes))
	return bounds
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return unicode.Is(unicode.Pf, r)
}

// byteOffsets maps every rune index (plus one past the end) to its byte
// offset in the original string.
func byteOffsets(text string, runes []rune) []int {
	offsets := make([]int, len(runes)+1)
	i := 0
	for pos := range text {
		offsets[i] = pos
		i++
	}
	offsets[len(runes)] = len(text)
	return offsets
}

var _ interfaces.Splitter = (*SentenceSplitter)(nil)
